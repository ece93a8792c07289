// Package tabledb is an embedded, schema-aware table store.
//
// The whole database lives in memory as plain records and is rewritten through
// a [Store] after every successful mutation. Tables have typed columns
// (see package value) with primaryKey, autoIncrement, notNull and unique
// constraints, and foreign keys between tables. Every foreign key is mirrored
// by a reverse link on the referenced column, which is what blocks deleting
// referenced rows and dropping referenced columns.
//
// Mutations are all-or-nothing: each call snapshots the tables it touches and
// restores them if any row or column in the batch fails, or if persisting
// fails.
//
// Reads go through [View], an immutable relational view with filtering,
// ordering, grouping, joins and aggregates.
//
//	db, _ := tabledb.Open(filestore.New("app.json", filestore.Options{}), tabledb.Options{})
//	users := db.Table("users")
//	_ = users.Insert(tabledb.Row{"name": "Ann"})
//	v, _ := users.Get()
//	oldest, _ := v.OrderBy(tabledb.Desc("age"))
package tabledb
