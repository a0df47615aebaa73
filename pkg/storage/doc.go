/*
Package storage persists Odin's predictor state.

BoltStore keeps the thermal catalog (components, actuators), the power
catalog (banks, loads, sources) and mission activities in one bbolt file,
<dataDir>/odin.db, with one bucket per kind keyed by id and JSON values.
Saving an existing id overwrites it.

Executed actions and completed charge cycles are append-only. They are keyed
by the bucket's NextSequence so a cursor walks them in execution order;
cycles live in a sub-bucket per battery bank.

	store, err := storage.NewBoltStore(cfg.DataDir)
	if err != nil {
		return err
	}
	defer store.Close()

	recent, err := store.ListActions(50)

SQLArchive is an optional second sink. When archive.dsn is configured the
engine copies every executed action into a Postgres "actions" table through
sqlx and the pgx stdlib driver. The archive is write-mostly and never read on
the hot path.
*/
package storage
