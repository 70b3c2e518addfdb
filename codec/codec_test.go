/*
 * Author: Markus Stenberg <fingon@iki.fi>
 *
 * Copyright (c) 2019 Markus Stenberg
 *
 * Created:       Mon Mar 25 10:02:11 2019 mstenber
 * Last modified: Mon Mar 25 11:38:50 2019 mstenber
 * Edit time:     31 min
 *
 */

package codec

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"testing"

	"github.com/stvp/assert"
)

var compressible = bytes.Repeat([]byte("IPM.Note subject line "), 20)

func prodCodecOnce(t *testing.T, c Codec, p []byte) {
	enc, err := c.EncodeBytes(p, nil)
	assert.Nil(t, err)
	dec, err := c.DecodeBytes(enc, nil)
	assert.Nil(t, err)
	assert.Equal(t, dec, p)
}

func prodCodec(t *testing.T, c Codec) {
	prodCodecOnce(t, c, []byte("foo"))
	prodCodecOnce(t, c, compressible)
}

func TestEncryptingCodec(t *testing.T) {
	t.Parallel()
	p := []byte("data")
	ad := []byte("ad")

	c := EncryptingCodec{}.Init([]byte("foo"), []byte("salt"), 64)
	prodCodec(t, c)

	enc, err := c.EncodeBytes(p, nil)
	assert.Nil(t, err)

	// additional data is authenticated
	_, err = c.DecodeBytes(enc, ad)
	assert.NotNil(t, err)

	// same payload does not encrypt the same way
	enc2, err := c.EncodeBytes(p, nil)
	assert.Nil(t, err)
	assert.NotEqual(t, enc, enc2)
	dec, err := c.DecodeBytes(enc2, nil)
	assert.Nil(t, err)
	assert.Equal(t, dec, p)

	enc3, err := c.EncodeBytes(p, ad)
	assert.Nil(t, err)
	dec, err = c.DecodeBytes(enc3, ad)
	assert.Nil(t, err)
	assert.Equal(t, dec, p)

	// wrong password
	c2 := EncryptingCodec{}.Init([]byte("bar"), []byte("salt"), 64)
	_, err = c2.DecodeBytes(enc3, ad)
	assert.NotNil(t, err)

	_, err = c.DecodeBytes([]byte("garbage"), nil)
	assert.NotNil(t, err)
}

func TestCompressingCodec(t *testing.T) {
	t.Parallel()
	c := &CompressingCodec{}
	prodCodec(t, c)

	enc, err := c.EncodeBytes(compressible, nil)
	assert.Nil(t, err)
	assert.True(t, len(enc) < len(compressible)/4)

	random := make([]byte, 256)
	_, err = rand.Read(random)
	assert.Nil(t, err)
	enc, err = c.EncodeBytes(random, nil)
	assert.Nil(t, err)
	var cd CompressedData
	_, err = cd.UnmarshalMsg(enc)
	assert.Nil(t, err)
	assert.Equal(t, cd.CompressionType, CompressionType_PLAIN)
	prodCodecOnce(t, c, random)

	cd = CompressedData{CompressionType: 42}
	enc, err = cd.MarshalMsg(nil)
	assert.Nil(t, err)
	_, err = c.DecodeBytes(enc, nil)
	assert.NotNil(t, err)
}

func TestNopCodecChain(t *testing.T) {
	t.Parallel()
	c := CodecChain{}.Init()
	prodCodec(t, c)
	enc, err := c.EncodeBytes(compressible, nil)
	assert.Nil(t, err)
	assert.Equal(t, enc, compressible)
}

func TestCodecChain(t *testing.T) {
	t.Parallel()
	c1 := EncryptingCodec{}.Init([]byte("foo"), []byte("salt"), 64)
	c2 := &CompressingCodec{}
	c := CodecChain{}.Init(c1, c2)
	prodCodec(t, c)

	enc, err := c.EncodeBytes(compressible, nil)
	assert.Nil(t, err)
	assert.True(t, len(enc) < len(compressible)/2)

	// decoding with only compression fails as data is encrypted
	_, err = CodecChain{}.Init(c2).DecodeBytes(enc, nil)
	assert.NotNil(t, err)
}

func BenchmarkCodec(b *testing.B) {
	run := func(b *testing.B, c Codec, p []byte, decode bool) {
		enc, err := c.EncodeBytes(p, nil)
		if err != nil {
			b.Fatal(err)
		}
		b.SetBytes(int64(len(p)))
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if decode {
				_, err = c.DecodeBytes(enc, nil)
			} else {
				_, err = c.EncodeBytes(p, nil)
			}
			if err != nil {
				b.Fatal(err)
			}
		}
	}
	random := make([]byte, 8192)
	_, err := rand.Read(random)
	if err != nil {
		b.Fatal(err)
	}
	zeros := make([]byte, 8192)
	c1 := EncryptingCodec{}.Init([]byte("foo"), []byte("salt"), 64)
	c2 := &CompressingCodec{}
	codecs := []struct {
		name  string
		codec Codec
	}{
		{"AES", c1},
		{"Snappy", c2},
		{"AES+Snappy", CodecChain{}.Init(c1, c2)},
	}
	for _, c := range codecs {
		for _, decode := range []bool{false, true} {
			op := "Encode"
			if decode {
				op = "Decode"
			}
			b.Run(fmt.Sprintf("%s-%s-Random", op, c.name), func(b *testing.B) {
				run(b, c.codec, random, decode)
			})
			b.Run(fmt.Sprintf("%s-%s-Zeros", op, c.name), func(b *testing.B) {
				run(b, c.codec, zeros, decode)
			})
		}
	}
}
