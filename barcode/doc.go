// Package barcode is a best-effort lookup cache from scanned barcodes to
// product records.
//
// The whole cache is a single JSON object stored under one key of a
// [Store], barcode -> [Entry]. There is no long lived in-memory copy: each
// operation loads the object, changes it and writes it back.
//
//   - [Cache.GetProduct] is an exact lookup. Hits refresh LastUsed, expired
//     entries are deleted on sight.
//   - [Cache.SetProduct] inserts or replaces an entry and evicts the least
//     recently used entries above the size limit.
//   - [Cache.FuzzySearch] suggests entries for a mistyped barcode. Candidates
//     are admitted by [FuzzyMatch], a cheap aligned comparison, and ranked by
//     [Similarity], which is based on [Levenshtein]. The two disagree for
//     insertions and deletions; that is accepted.
//   - [Cache.CleanExpired] purges expired entries.
//   - [Cache.Stats] counts live and expired entries without writing.
//
// Entries expire [CacheExpiryDays] days after they were last used and at
// most [MaxCacheSize] entries are kept. Both can be changed with options.
//
// No operation returns an error. A corrupt or unreachable store behaves like
// an empty cache and failed writes are dropped after being logged, so a
// product that could not be cached is simply not found later.
//
// Processes sharing a store are not coordinated; concurrent writers lose
// each other's updates.
package barcode
