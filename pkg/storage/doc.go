// Package storage decides where an account's files live.
//
// Every account owns one directory under the output root:
//
//	downloads/
//	  alice/
//	    .downloaded.json            dedup cache
//	    manifest.jsonl              download log
//	    1714557600000_AAA_00.jpg    images
//	    debug_alice.png             written only when discovery found nothing
//	    debug_alice.html
//
// Prepare bootstraps that tree without touching files that already exist.
package storage
