package stores

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/binary"
	"errors"
	"io"
	"time"

	"github.com/Henrriky/beautyauth/internal/kv"
)

const (
	verificationKeyPrefix       = "code"
	verificationRecordVersionV1 = 1
	maxConsumeRetries           = 4
)

var (
	// ErrMismatch is returned when a record exists but the candidate
	// secret does not match its stored hash.
	ErrMismatch = errors.New("stores: secret mismatch")
	// ErrAttemptsExceeded is returned when a mismatch pushes the record
	// past its attempt ceiling. The record is destroyed as a side effect.
	ErrAttemptsExceeded = errors.New("stores: attempts exceeded")
)

// VerificationRecord is the stored state of one active code for a
// (purpose, recipient) pair. Only the newest record for a pair exists;
// Save overwrites unconditionally.
type VerificationRecord struct {
	SecretHash [32]byte
	Payload    []byte
	Attempts   uint16
	ExpiresAt  int64
}

// VerificationStore holds one-time verification codes keyed by purpose
// and normalized recipient identity.
type VerificationStore struct {
	store kv.Store
}

func NewVerificationStore(store kv.Store) *VerificationStore {
	return &VerificationStore{store: store}
}

func (s *VerificationStore) key(purpose, recipientID string) string {
	return verificationKeyPrefix + ":" + purpose + ":" + recipientID
}

// Save writes the record, invalidating any prior code for the same
// (purpose, recipient) pair.
func (s *VerificationStore) Save(ctx context.Context, purpose, recipientID string, record *VerificationRecord, ttl time.Duration) error {
	encoded, err := encodeVerificationRecord(record)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, s.key(purpose, recipientID), encoded, ttl)
}

// Consume verifies the candidate hash against the stored record and
// destroys the record on success. A mismatch increments the attempt
// counter; reaching maxAttempts destroys the record. The final
// delete-on-match is conditional on the exact bytes that were verified,
// so a record overwritten between read and delete is never consumed and
// exactly one of N racing callers succeeds.
func (s *VerificationStore) Consume(ctx context.Context, purpose, recipientID string, providedHash [32]byte, maxAttempts int) (*VerificationRecord, error) {
	key := s.key(purpose, recipientID)

	for i := 0; i < maxConsumeRetries; i++ {
		raw, err := s.store.Get(ctx, key)
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}

		record, err := decodeVerificationRecord(raw)
		if err != nil {
			// Corrupt records are destroyed and treated as absent.
			_, _ = s.store.CompareAndDelete(ctx, key, raw)
			return nil, ErrNotFound
		}

		now := time.Now()
		if now.Unix() > record.ExpiresAt {
			_, _ = s.store.CompareAndDelete(ctx, key, raw)
			return nil, ErrNotFound
		}

		if subtle.ConstantTimeCompare(record.SecretHash[:], providedHash[:]) != 1 {
			record.Attempts++
			if int(record.Attempts) >= maxAttempts {
				if _, err := s.store.CompareAndDelete(ctx, key, raw); err != nil {
					return nil, err
				}
				return nil, ErrAttemptsExceeded
			}

			ttl := time.Until(time.Unix(record.ExpiresAt, 0))
			if ttl <= 0 {
				_, _ = s.store.CompareAndDelete(ctx, key, raw)
				return nil, ErrNotFound
			}

			updated, err := encodeVerificationRecord(record)
			if err != nil {
				return nil, err
			}
			swapped, err := s.store.CompareAndSwap(ctx, key, raw, updated, ttl)
			if err != nil {
				return nil, err
			}
			if !swapped {
				continue
			}
			return nil, ErrMismatch
		}

		taken, err := s.store.CompareAndDelete(ctx, key, raw)
		if err != nil {
			return nil, err
		}
		if !taken {
			continue
		}
		return record, nil
	}

	return nil, ErrNotFound
}

// Invalidate removes any active code for the pair. Idempotent.
func (s *VerificationStore) Invalidate(ctx context.Context, purpose, recipientID string) error {
	return s.store.Delete(ctx, s.key(purpose, recipientID))
}

func encodeVerificationRecord(record *VerificationRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(verificationRecordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}
	buf.Write(record.SecretHash[:])

	if len(record.Payload) > 65535 {
		return nil, errors.New("verification record payload too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.Payload))); err != nil {
		return nil, err
	}
	buf.Write(record.Payload)

	return buf.Bytes(), nil
}

func decodeVerificationRecord(data []byte) (*VerificationRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != verificationRecordVersionV1 {
		return nil, errors.New("invalid verification record version")
	}

	record := &VerificationRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.Attempts); err != nil {
		return nil, err
	}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(reader, record.SecretHash[:]); err != nil {
		return nil, err
	}

	var payloadLen uint16
	if err := binary.Read(reader, binary.BigEndian, &payloadLen); err != nil {
		return nil, err
	}
	record.Payload = make([]byte, payloadLen)
	if _, err := io.ReadFull(reader, record.Payload); err != nil {
		return nil, err
	}

	return record, nil
}
