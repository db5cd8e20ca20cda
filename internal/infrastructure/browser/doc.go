// Package browser owns the headless renderer used for performance audits.
//
// Every audit gets its own Chrome process. The process is started by
// Manager.Launch and terminated exactly once by Handle.Close, whatever the
// outcome of the audit; handles are never pooled or shared between requests.
package browser
