/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 25 14:50:30 2019 mstenber
 * Last modified: Tue Mar 26 09:40:12 2019 mstenber
 * Edit time:     28 min
 *
 */

package factory

import (
	"sort"

	"github.com/fingon/go-pstndb/archive"
	"github.com/fingon/go-pstndb/archive/badger"
	"github.com/fingon/go-pstndb/archive/bolt"
	"github.com/fingon/go-pstndb/archive/inmemory"
	"github.com/fingon/go-pstndb/codec"
	"github.com/fingon/go-pstndb/mlog"
	"github.com/pkg/errors"
)

type factoryCallback func() archive.Backend

var backendFactories = map[string]factoryCallback{
	"inmemory": func() archive.Backend {
		return inmemory.NewInMemoryBackend()
	},
	"badger": func() archive.Backend {
		return badger.NewBadgerBackend()
	},
	"bolt": func() archive.Backend {
		return bolt.NewBoltBackend()
	}}

// List returns the known backend names in alphabetical order.
func List() []string {
	keys := make([]string, 0, len(backendFactories))
	for k := range backendFactories {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func New(name string, config archive.BackendConfiguration) (archive.Backend, error) {
	mlog.Printf2("archive/factory/factory", "f.New %v %v", name, config)
	cb, ok := backendFactories[name]
	if !ok {
		return nil, errors.Errorf("unknown backend %q", name)
	}
	be := cb()
	err := be.Init(config)
	if err != nil {
		return nil, err
	}
	return be, nil
}

type Configuration struct {
	archive.BackendConfiguration
	BackendName      string
	Password, Salt   string
	Iterations       int
	ContentThreshold int
}

const defaultSalt = "pstndb"

// NewArchive creates archive on top of named backend. Values are
// always compressed, and encrypted if password is set.
func NewArchive(config Configuration) (*archive.Archive, error) {
	mlog.Printf2("archive/factory/factory", "f.NewArchive")
	salt := config.Salt
	if salt == "" {
		salt = defaultSalt
	}
	c2 := &codec.CompressingCodec{}
	var c *codec.CodecChain
	if config.Password != "" {
		mlog.Printf2("archive/factory/factory", " with encryption + compression")
		c1 := codec.EncryptingCodec{}.Init([]byte(config.Password), []byte(salt), config.Iterations)
		c = codec.CodecChain{}.Init(c1, c2)
	} else {
		mlog.Printf2("archive/factory/factory", " only compression")
		c = codec.CodecChain{}.Init(c2)
	}
	be, err := New(config.BackendName, config.BackendConfiguration)
	if err != nil {
		return nil, err
	}
	return archive.Archive{Backend: be, Codec: c,
		ContentThreshold: config.ContentThreshold}.Init(), nil
}
