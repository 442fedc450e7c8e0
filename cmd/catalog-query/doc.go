// Command catalog-query reads the SDC file catalog.
//
// Usage:
//
//	catalog-query <command> [arguments]
//
// Commands:
//
//	latest <instrument> [level] [descriptor]
//	        Newest version of every matching science product. Versions
//	        compare by absolute version only.
//
//	list <instrument> [level]
//	        Every matching science row, all versions.
//
//	ancillary [product]
//	        Ancillary rows, optionally for one product.
//
//	show <file_name>
//	        Every column of one science row.
//
//	status [component]
//	        The most recent status records.
//
//	counts  Row counts per table.
//
// Output is an aligned table when stdout is a terminal and tab-separated
// values otherwise, so the tool can feed other programs.
//
// Environment:
//
// The catalog is located with the indexer's configuration: SDC_CONFIG,
// SDC_DB_DRIVER and SDC_DSN.
package main
