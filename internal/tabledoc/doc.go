// Package tabledoc implements the embedded table document store and its
// deferred query layer.
//
// All portal data lives in two JSON documents on disk: a table document
// holding the fixed set of named tables as ordered lists of flat
// attribute-sets, and a session document holding the current session or
// null. Loads heal silently from corruption; saves rewrite the full
// document. Queries are built as immutable descriptors and only touch
// storage when Run is called.
package tabledoc
