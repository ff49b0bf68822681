// trackctl 追踪号运维命令行工具
//
// 用法:
//
//	trackctl derive "IT Piezas"
//	trackctl check ITP --exclude-id 7
//	trackctl next-code 7
//	trackctl backfill-prefixes --limit 100 --dry-run
//	trackctl tail-events --routing-key "shipment.*"
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(defaultCLI()).Execute(); err != nil {
		os.Exit(1)
	}
}
