// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package storage

import (
	"fmt"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/folio/core"
)

// formatVersion prefixes every encoded post and media value.
const formatVersion int64 = 1

// MarshalPost serializes a Post to bytes. Media is stored separately and is
// not part of the encoding.
func MarshalPost(post *core.Post) []byte {
	var e encoder
	e.int64(formatVersion)
	e.string(post.ID)
	e.string(post.Title)
	e.string(post.Description)
	e.string(post.Content)
	e.strings(post.Tags)
	e.string(string(post.Status))
	e.bool(post.Featured)
	e.time(post.CreatedOn)
	e.time(post.UpdatedOn)
	e.string(post.GithubURL)
	e.string(post.DemoURL)
	e.string(post.DatasetURL)
	e.strings(post.Methodology)
	e.string(post.Results)
	e.bool(post.Embedding != nil)
	if post.Embedding != nil {
		e.vector(post.Embedding)
	}
	return e.bs
}

// UnmarshalPost deserializes a Post from bytes.
func UnmarshalPost(data []byte) (*core.Post, error) {
	d := decoder{bs: data}
	if v := d.int64(); d.err == nil && v != formatVersion {
		return nil, fmt.Errorf("%w: unknown post format %d", ErrSerializationFailed, v)
	}
	post := &core.Post{
		ID:          d.string(),
		Title:       d.string(),
		Description: d.string(),
		Content:     d.string(),
		Tags:        d.strings(),
		Status:      core.Status(d.string()),
		Featured:    d.bool(),
		CreatedOn:   d.time(),
		UpdatedOn:   d.time(),
		GithubURL:   d.string(),
		DemoURL:     d.string(),
		DatasetURL:  d.string(),
		Methodology: d.strings(),
		Results:     d.string(),
	}
	if d.bool() {
		post.Embedding = d.vector()
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return post, nil
}

// MarshalMedia serializes a Media item to bytes.
func MarshalMedia(media *core.Media) []byte {
	var e encoder
	e.int64(formatVersion)
	e.string(media.ID)
	e.string(media.PostID)
	e.string(string(media.Kind))
	e.string(media.URL)
	e.string(media.Caption)
	e.string(media.Alt)
	return e.bs
}

// UnmarshalMedia deserializes a Media item from bytes.
func UnmarshalMedia(data []byte) (*core.Media, error) {
	d := decoder{bs: data}
	if v := d.int64(); d.err == nil && v != formatVersion {
		return nil, fmt.Errorf("%w: unknown media format %d", ErrSerializationFailed, v)
	}
	media := &core.Media{
		ID:      d.string(),
		PostID:  d.string(),
		Kind:    core.MediaKind(d.string()),
		URL:     d.string(),
		Caption: d.string(),
		Alt:     d.string(),
	}
	if err := d.finish(); err != nil {
		return nil, err
	}
	return media, nil
}

// MarshalVector serializes an embedding vector to bytes.
func MarshalVector(vector []float32) []byte {
	var e encoder
	e.vector(vector)
	return e.bs
}

// UnmarshalVector deserializes an embedding vector from bytes.
func UnmarshalVector(data []byte) ([]float32, error) {
	d := decoder{bs: data}
	v := d.vector()
	if err := d.finish(); err != nil {
		return nil, err
	}
	return v, nil
}

type encoder struct {
	bs []byte
}

func (e *encoder) grow(n int) []byte {
	start := len(e.bs)
	e.bs = append(e.bs, make([]byte, n)...)
	return e.bs[start:]
}

func (e *encoder) int64(v int64) {
	varint.Int64.Marshal(v, e.grow(varint.Int64.Size(v)))
}

func (e *encoder) string(v string) {
	ord.String.Marshal(v, e.grow(ord.String.Size(v)))
}

func (e *encoder) bool(v bool) {
	ord.Bool.Marshal(v, e.grow(ord.Bool.Size(v)))
}

func (e *encoder) strings(v []string) {
	e.int64(int64(len(v)))
	for _, s := range v {
		e.string(s)
	}
}

func (e *encoder) time(t time.Time) {
	if t.IsZero() {
		e.int64(0)
		return
	}
	e.int64(t.UnixMicro())
}

func (e *encoder) vector(v []float32) {
	e.int64(int64(len(v)))
	for _, f := range v {
		raw.Float32.Marshal(f, e.grow(raw.Float32.Size(f)))
	}
}

// decoder reads fields in order and latches the first error.
type decoder struct {
	bs  []byte
	err error
}

func (d *decoder) fail(err error) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
}

func (d *decoder) int64() int64 {
	if d.err != nil {
		return 0
	}
	v, n, err := varint.Int64.Unmarshal(d.bs)
	if err != nil {
		d.fail(err)
		return 0
	}
	d.bs = d.bs[n:]
	return v
}

func (d *decoder) string() string {
	if d.err != nil {
		return ""
	}
	v, n, err := ord.String.Unmarshal(d.bs)
	if err != nil {
		d.fail(err)
		return ""
	}
	d.bs = d.bs[n:]
	return v
}

func (d *decoder) bool() bool {
	if d.err != nil {
		return false
	}
	v, n, err := ord.Bool.Unmarshal(d.bs)
	if err != nil {
		d.fail(err)
		return false
	}
	d.bs = d.bs[n:]
	return v
}

func (d *decoder) length() int {
	n := d.int64()
	if d.err != nil {
		return 0
	}
	if n < 0 || n > int64(len(d.bs)) {
		d.fail(fmt.Errorf("%w: length %d exceeds %d remaining bytes", ErrTruncatedData, n, len(d.bs)))
		return 0
	}
	return int(n)
}

func (d *decoder) strings() []string {
	n := d.length()
	if d.err != nil || n == 0 {
		return nil
	}
	out := make([]string, 0, n)
	for i := 0; i < n && d.err == nil; i++ {
		out = append(out, d.string())
	}
	return out
}

func (d *decoder) time() time.Time {
	v := d.int64()
	if d.err != nil || v == 0 {
		return time.Time{}
	}
	return time.UnixMicro(v).UTC()
}

func (d *decoder) vector() []float32 {
	n := d.length()
	if d.err != nil {
		return nil
	}
	out := make([]float32, 0, n)
	for i := 0; i < n; i++ {
		v, read, err := raw.Float32.Unmarshal(d.bs)
		if err != nil {
			d.fail(err)
			return nil
		}
		d.bs = d.bs[read:]
		out = append(out, v)
	}
	return out
}

func (d *decoder) finish() error {
	if d.err != nil {
		return d.err
	}
	if len(d.bs) != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrSerializationFailed, len(d.bs))
	}
	return nil
}
