// Package barcode reads symbols from binarized bitmaps using the gozxing
// per-format readers.
//
// Reader dispatches one bitmap across every format allowed by the Hints and
// reports the first success as a Result. Failures are reduced to two
// sentinels: ErrNotFound when nothing was located and ErrCorrupt when a
// symbol was located but did not validate.
//
// Example:
//
//	r := barcode.NewReader()
//	res, err := r.Decode(bitmap, barcode.DefaultHints())
package barcode
