// Package mirror drives a complete mirror run and exposes it as the sync and ledger commands.
//
// A run loads the update ledger, lists outdated repositories for every configured account,
// synchronizes a bounded number of them, records the attempt time of each success and saves
// the ledger exactly once. Failed repositories keep their previous watermark so the next run
// retries them.
package mirror
