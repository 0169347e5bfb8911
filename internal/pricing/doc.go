// Package pricing resolves the price tuple of one item on one store.
//
// The resolver never fails. Unparseable special price dates drop the special
// price and currency conversion failures keep the unconverted amount; both are
// logged and counted as transient errors.
package pricing
