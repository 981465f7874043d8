/*
Package session serializes signal handling per entity and orchestrates persistence.

Every escape transition is a read-modify-write of one entity's record. The
Manager makes that atomic: it holds a reference-counted local lock per entity
(optionally backed by a distributed lock for multi-replica hosts), loads the
record, applies the transition, checks the record invariants and saves it.
*/
package session
