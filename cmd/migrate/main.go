package main

import (
	"flag"

	"k8s.io/klog/v2"

	"github.com/ync-lab/intranet/dao/migrate"
	"github.com/ync-lab/intranet/dao/query"
)

// Applies the schema migrations, or reverts the latest one with -rollback
func main() {
	rollback := flag.Bool("rollback", false, "revert the most recent migration")
	klog.InitFlags(nil)
	flag.Parse()

	db := query.GetDB()
	if *rollback {
		if err := migrate.RollbackLast(db); err != nil {
			klog.Fatal(err)
		}
		klog.Info("rolled back the last migration")
		return
	}
	if err := migrate.Run(db); err != nil {
		klog.Fatal(err)
	}
}
