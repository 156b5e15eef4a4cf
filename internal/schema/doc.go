// Package schema defines the records decoded from the five published feeds.
//
// # Feeds
//
// Every feed is a delimited export whose first row is a header. Decoders skip
// that row and map the remaining rows by column position:
//
//	Tasks          0 due label, 1 sector, 2 pdv code, 3 pdv name, 4 cluster,
//	               5 "bought/total" mix, 6 missing, 7 description, 8 hash id,
//	               9 operation, 10 coins, 11 category, 12 subject, 13 flag score
//	NonBuyers      0 sector, 1 pdv code, 2 fantasy name, 3 last visit
//	SkuMap         0 hash id, 1 comma-separated SKU names
//	ProductImages  0 id, 1 name, 2 image url
//	Consultants    0 id, 1 sector, 2 pass, 3 avatar url, 4 name
//
// # Decoding policy
//
// Decoders never fail. Blank fields fall back to documented defaults,
// numeric fields parse their leading integer (zero when there is none), and
// rows missing a required field are dropped. A single malformed row never
// invalidates a batch; DecodeStats reports what happened for logging.
//
// Records are immutable once decoded. A new sync produces new values.
package schema
