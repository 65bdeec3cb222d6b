package model

import (
	"bytes"
	"encoding/gob"
	"io"

	"github.com/YuminosukeSato/ensembles/pkg/errors"
)

// EncodeState gob-encodes a model's state struct for Snapshot.State.
func EncodeState(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, errors.Wrap(err, "failed to encode model state")
	}
	return buf.Bytes(), nil
}

// DecodeState decodes Snapshot.State into v.
func DecodeState(data []byte, v interface{}) error {
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(v); err != nil {
		return errors.Wrap(err, "failed to decode model state")
	}
	return nil
}

// WriteSnapshot はスナップショットをio.Writerに保存する
func WriteSnapshot(w io.Writer, s *Snapshot) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := gob.NewEncoder(w).Encode(s); err != nil {
		return errors.Wrap(err, "failed to encode snapshot")
	}
	return nil
}

// ReadSnapshot はio.Readerからスナップショットを読み込む
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := gob.NewDecoder(r).Decode(&s); err != nil {
		return nil, errors.Wrap(err, "failed to decode snapshot")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}
