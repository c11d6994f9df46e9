// Package reconcile joins cleaned transactions against the cleaned
// inventory of record. Each transaction is classified VALID or PHANTOM
// by set membership on the normalized product identifier, enriched with
// inventory cost data, and given derived financial and risk fields. The
// engine is pure: same inputs, same records, no I/O.
package reconcile
