/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Wed Mar 27 08:40:02 2019 mstenber
 * Last modified: Wed Mar 27 12:20:31 2019 mstenber
 * Edit time:     41 min
 *
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/fingon/go-pstndb/archive"
	"github.com/fingon/go-pstndb/archive/factory"
	"github.com/fingon/go-pstndb/mlog"
	"github.com/fingon/go-pstndb/ndb"
	"github.com/fingon/go-pstndb/pst"
)

func parseNID(s string) (ndb.NID, error) {
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, err
	}
	return ndb.NID(v), nil
}

func export(f *pst.File, config factory.Configuration, workers int) error {
	a, err := factory.NewArchive(config)
	if err != nil {
		return err
	}
	defer a.Close()
	e := archive.Exporter{File: f, Archive: a, Workers: workers}.Init()
	err = e.Export(context.Background())
	if err != nil {
		return err
	}
	mlog.Printf2("cmd/pstdump/pstdump", "Exported %d folders, %d messages, %d attachments",
		e.Stats.Folders.Get(), e.Stats.Messages.Get(), e.Stats.Attachments.Get())
	fmt.Printf("Exported %d folders and %d messages to %s\n",
		e.Stats.Folders.Get(), e.Stats.Messages.Get(), config.Directory)
	return nil
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage:\n\n%s [flags] PSTFILE\n", os.Args[0])
		flag.PrintDefaults()
	}
	header := flag.Bool("header", false, "Dump header")
	nodes := flag.Bool("nodes", false, "Dump node counts by type")
	verify := flag.Bool("verify", false, "Verify that all referred blocks exist")
	nid := flag.String("nid", "", "Dump properties of the node (e.g. 0x21)")
	table := flag.String("table", "", "Dump rows of the table node (e.g. 0x12d)")
	tree := flag.Bool("tree", false, "Dump folder tree with messages")
	exportDir := flag.String("export", "", "Export messages to archive in the given directory")
	backend := flag.String("backend", "bolt",
		fmt.Sprintf("Archive backend to use (possible: %v)", factory.List()))
	password := flag.String("password", "", "Archive password (empty = no encryption)")
	salt := flag.String("salt", "", "Archive salt")
	workers := flag.Int("workers", archive.DefaultWorkers, "Number of parallel export workers")
	maxDepth := flag.Int("maxdepth", 0, "Maximum b-tree depth (0 = default)")
	flag.Parse()
	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(1)
	}

	config := pst.Configuration{Limits: ndb.Limits{MaxTreeDepth: *maxDepth}}
	f, err := pst.OpenFile(flag.Arg(0), config)
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	d := newDumper(f, os.Stdout)
	if *header {
		if err = d.header(); err != nil {
			log.Fatal(err)
		}
	}
	if *nodes {
		if err = d.nodes(); err != nil {
			log.Fatal(err)
		}
	}
	if *verify {
		if err = f.Directory().Verify(); err != nil {
			log.Fatal(err)
		}
		fmt.Println("ok")
	}
	for _, x := range []struct {
		value string
		dump  func(ndb.NID) error
	}{
		{*nid, d.properties},
		{*table, d.table},
	} {
		if x.value == "" {
			continue
		}
		n, err := parseNID(x.value)
		if err != nil {
			log.Fatal(err)
		}
		if err = x.dump(n); err != nil {
			log.Fatal(err)
		}
	}
	if *tree {
		if err = d.tree(); err != nil {
			log.Fatal(err)
		}
	}
	if *exportDir != "" {
		ac := factory.Configuration{BackendName: *backend,
			Password: *password, Salt: *salt}
		ac.Directory = *exportDir
		if err = export(f, ac, *workers); err != nil {
			log.Fatal(err)
		}
	}
}
