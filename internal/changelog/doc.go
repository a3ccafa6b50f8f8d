// Package changelog implements the incremental fetch, filter and group
// pipeline behind the "what's new" feed: pages are pulled from a PageSource,
// reduced to merged pull requests carrying the inclusion label, and grouped
// under deduplicated date headers.
package changelog
