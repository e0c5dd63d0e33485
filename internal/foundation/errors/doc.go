// Package errors provides the classified error primitives used across shelfkeeper.
//
// Every rejected container or inventory operation resolves its future with a
// ClassifiedError carrying a category, a severity and, for caller-visible
// rejections, a Reason the transport layer can translate.
//
// Example usage:
//
//	err := errors.Rejected(errors.ReasonSlotEmpty, "no book in slot").
//		WithContext("slot", 3).
//		Build()
//
//	if errors.HasReason(err, errors.ReasonSlotEmpty) {
//		// ...
//	}
package errors
