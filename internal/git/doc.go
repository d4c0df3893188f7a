// Package git lists tags of a remote repository over the git protocol
// (ls-remote) without cloning. It is an alternative tag source to the REST
// API and is not subject to its rate limits.
package git
