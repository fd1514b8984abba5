package archivedb

import (
	"context"
	"log"

	"github.com/Facilitator-Network/agent-cli-backend/pkg/archive"
	mghelper "github.com/Facilitator-Network/agent-cli-backend/pkg/pgutil/migrations"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating bridge_records table...")
		if err := mghelper.CreateSchema(ctx, db, &archive.RecordDao{}); err != nil {
			return err
		}
		if err := mghelper.CreateModelUniqueIndexes(ctx, db, &archive.RecordDao{}, "payment_tx_hash"); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &archive.RecordDao{}, "status", "source_chain", "created_at")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping bridge_records table...")
		if err := mghelper.DropModelIndexes(ctx, db, &archive.RecordDao{}, "payment_tx_hash", "status", "source_chain", "created_at"); err != nil {
			return err
		}
		return mghelper.DropTables(ctx, db, &archive.RecordDao{})
	})
}
