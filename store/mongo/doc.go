// Package mongo implements the store using the official MongoDB
// driver. Locks are conditional upserts whose filters match only
// expired documents, so acquisition rides on the server's unique-key
// guarantee; directory records are plain replace-upserts filtered by
// expiry at read time.
//
// The caller owns the *mongo.Client lifecycle -- the store never
// closes it. Pass a database handle through the constructor:
//
//	client, _ := mongod.Connect(options.Client().ApplyURI(uri))
//	s := mongostore.New(client.Database("coalesce"))
//	s.Migrate(ctx)
package mongo
