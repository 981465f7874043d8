/*
Package dsl provides a Go DSL for programmatically constructing resist scenarios.

It is the fluent counterpart of the YAML scenario format: worlds and timelines are
declared with type-checked calls instead of files. This is particularly useful for
table-driven tests and for generating scenarios from other data.

Example usage:

	b := dsl.New("cat in hand")

	b.Entity("room")
	b.Entity("human").In("room").Mass(70)
	b.Entity("cat").In("human").InHand().Mass(35).Escapes(2 * time.Second)

	b.Move("cat", "up").
		Advance(4 * time.Second).
		Expect("cat").Escaping(false).Parent("room")

	sc, err := b.Build()
	// ... play sc with runner.NewRunner().Run(ctx, sc)
*/
package dsl
