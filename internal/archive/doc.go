// Package archive wraps the external archive client executables used to move
// datasets between the content archive and local staging, and to attach
// metadata to archived results. All access goes through the Client interface
// so the pipeline can be tested without an archive deployment.
package archive
