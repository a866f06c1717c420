// Package queryir is a small typed query representation for generic table
// access.
//
// Tables and columns in these structures are plain names chosen at runtime
// (from an edit batch, a relation registry entry, or a listing filter).
// They are never turned into SQL directly: internal/querysql validates
// every identifier against a catalog.Descriptor before quoting it.
//
//	[caller] → [queryir.Select/Update/Insert] → [querysql + Descriptor] → SQL, args
//
// Query and Predicate are sealed interfaces using the marker method
// pattern, so backends can switch exhaustively:
//
//	switch q := query.(type) {
//	case Select:
//	case Update:
//	case Insert:
//	}
//
// Values are driver arguments (nil, int64, float64, string). They are
// always bound as parameters.
package queryir
