// Package syncer pulls documentation from a remote repository and writes it
// as MDX plus navigation manifests into the content tree.
//
// Two pipeline kinds exist. A Versioned pipeline syncs the default branch as
// "latest" and every selected release tag, walking one folder level below the
// docs root. A Tree pipeline syncs only the default branch, to any depth, and
// converts reStructuredText as well as Markdown.
//
// Pipelines run sequentially and fetch one file at a time. A remote failure
// aborts the current version and is returned; files already written stay.
package syncer
