// Package store keeps every alert the collector has seen in a bbolt file,
// keyed by stolen mote and packet id, so repeated deliveries are detected.
package store

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"

	"github.com/ystepanoff/antitheft/protocol"
)

var bucketAlerts = []byte("alerts")

var ErrNotFound = errors.New("store: alert not found")

// Record is the stored form of an alert. Count is the number of times the
// same (StolenID, PacketID) pair has been received.
type Record struct {
	Alert     protocol.Alert `cbor:"1,keyasint"`
	FirstSeen time.Time      `cbor:"2,keyasint"`
	LastSeen  time.Time      `cbor:"3,keyasint"`
	Count     uint32         `cbor:"4,keyasint"`
}

var encMode = func() cbor.EncMode {
	em, err := cbor.EncOptions{Time: cbor.TimeRFC3339Nano}.EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

type Store struct {
	db *bolt.DB
}

func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketAlerts)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func alertKey(stolen protocol.NodeID, packet uint16) []byte {
	k := make([]byte, 0, 4)
	k = binary.BigEndian.AppendUint16(k, uint16(stolen))
	return binary.BigEndian.AppendUint16(k, packet)
}

// Put records a received alert. fresh reports whether this is the first
// time its (StolenID, PacketID) pair was seen; duplicates only bump Count.
func (s *Store) Put(a protocol.Alert, at time.Time) (fresh bool, err error) {
	key := alertKey(a.StolenID, a.PacketID)
	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketAlerts)

		var rec Record
		if v := b.Get(key); v != nil {
			if err := cbor.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record %x: %w", key, err)
			}
			rec.Count++
			rec.LastSeen = at
		} else {
			fresh = true
			rec = Record{Alert: a, FirstSeen: at, LastSeen: at, Count: 1}
		}

		buf, err := encMode.Marshal(rec)
		if err != nil {
			return err
		}
		return b.Put(key, buf)
	})
	return fresh, err
}

// Forget removes the record for one (StolenID, PacketID) pair, so the next
// delivery of that alert counts as fresh again. Missing records are ignored.
func (s *Store) Forget(stolen protocol.NodeID, packet uint16) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketAlerts).Delete(alertKey(stolen, packet))
	})
}

func (s *Store) Get(stolen protocol.NodeID, packet uint16) (*Record, error) {
	var rec Record
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketAlerts).Get(alertKey(stolen, packet))
		if v == nil {
			return ErrNotFound
		}
		return cbor.Unmarshal(v, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns every record for one stolen mote in packet id order.
func (s *Store) List(stolen protocol.NodeID) ([]Record, error) {
	var out []Record
	prefix := binary.BigEndian.AppendUint16(nil, uint16(stolen))
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketAlerts).Cursor()
		for k, v := c.Seek(prefix); k != nil && len(k) == 4 && k[0] == prefix[0] && k[1] == prefix[1]; k, v = c.Next() {
			var rec Record
			if err := cbor.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decode record %x: %w", k, err)
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, err
}
