// Package gitrepo contains helpers for manipulating local Git repositories.
//
// RepositoryManager wraps branch, commit, remote, fetch, and push operations
// behind structured methods executed through execshell. Push output is read in
// porcelain mode so callers can tell forced updates from rejected ones.
package gitrepo
