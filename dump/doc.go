/*
Package dump provides I/O operations for collected vault states.

Dumps let vault logic be tested against persisted state of real deployments
and make migrations reproducible: a state dumped before an upgrade can be
restored into a fresh store and upgraded again.

The package works with dumps stored in the file system using human-readable
encoding.
*/
package dump
