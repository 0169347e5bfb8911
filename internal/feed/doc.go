// Package feed serves pages of changed catalog items.
//
// A request runs as one sequential pipeline:
//
//	validate cursor -> stabilize ledger (prune + dedup) -> resolve window ->
//	bulk fetch catalog data -> assemble items -> build page
//
// The ledger is stabilized before any window read, so records at or below the
// caller's since id are gone before the page is computed. Only one poller may
// drain a given watermark at a time; prune is destructive and the ledger does
// not guard against overlapping pollers.
package feed
