package stores

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"io"
	"time"

	"github.com/Henrriky/beautyauth/internal/kv"
)

const (
	refreshKeyPrefix       = "refresh"
	familyKeyPrefix        = "family"
	refreshRecordVersionV1 = 1
	familyRecordVersionV1  = 1
	maxRotateRetries       = 4
)

var (
	// ErrReuseDetected is returned when a superseded token is presented
	// again. The whole family has been revoked as a side effect.
	ErrReuseDetected = errors.New("stores: refresh token reuse detected")
	// ErrFamilyRevoked is returned when the token's family carries a
	// revocation tombstone, from an earlier reuse detection or logout.
	ErrFamilyRevoked = errors.New("stores: refresh family revoked")
)

// TokenStatus is the per-record rotation state. ACTIVE moves to ROTATED
// exactly once; REVOKED is terminal and reachable from any state.
type TokenStatus uint8

const (
	StatusActive TokenStatus = iota
	StatusRotated
	StatusRevoked
)

// TokenRecord is the stored state of one refresh token, keyed by jti.
// Rotated records are retained until their natural expiry purely to
// detect replay.
type TokenRecord struct {
	FamilyID  string
	UserID    string
	Status    TokenStatus
	ExpiresAt int64
}

// FamilyRecord tracks one login's rotation chain. Revoked is an
// absorbing flag: every rotation checks it before touching the token
// record, so flipping it invalidates all descendants at once, including
// a token minted concurrently with the revocation.
type FamilyRecord struct {
	UserID    string
	Revoked   bool
	ExpiresAt int64
}

// RefreshStore holds refresh-token records and their family chains.
type RefreshStore struct {
	store kv.Store
}

func NewRefreshStore(store kv.Store) *RefreshStore {
	return &RefreshStore{store: store}
}

func (s *RefreshStore) tokenKey(jti string) string {
	return refreshKeyPrefix + ":" + jti
}

func (s *RefreshStore) familyKey(familyID string) string {
	return familyKeyPrefix + ":" + familyID
}

// CreateFamily writes a fresh family record and its first ACTIVE token.
func (s *RefreshStore) CreateFamily(ctx context.Context, familyID, jti, userID string, ttl time.Duration) error {
	expiresAt := time.Now().Add(ttl).Unix()

	famEncoded, err := encodeFamilyRecord(&FamilyRecord{UserID: userID, ExpiresAt: expiresAt})
	if err != nil {
		return err
	}
	if err := s.store.Put(ctx, s.familyKey(familyID), famEncoded, ttl); err != nil {
		return err
	}

	tokEncoded, err := encodeTokenRecord(&TokenRecord{
		FamilyID:  familyID,
		UserID:    userID,
		Status:    StatusActive,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return err
	}
	return s.store.Put(ctx, s.tokenKey(jti), tokEncoded, ttl)
}

// Rotate supersedes the presented token and mints newJTI as the
// family's next ACTIVE record. The ACTIVE-to-ROTATED transition is a
// compare-and-swap on the exact bytes that were read, so two callers
// racing on the same token resolve to one winner; the loser re-reads,
// finds a non-ACTIVE record, and burns the family.
func (s *RefreshStore) Rotate(ctx context.Context, familyID, jti, newJTI string, ttl time.Duration) (*TokenRecord, error) {
	tokKey := s.tokenKey(jti)
	famKey := s.familyKey(familyID)

	for i := 0; i < maxRotateRetries; i++ {
		famRaw, err := s.store.Get(ctx, famKey)
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		family, err := decodeFamilyRecord(famRaw)
		if err != nil {
			return nil, ErrNotFound
		}
		if family.Revoked {
			return nil, ErrFamilyRevoked
		}

		tokRaw, err := s.store.Get(ctx, tokKey)
		if errors.Is(err, kv.ErrNotFound) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, err
		}
		record, err := decodeTokenRecord(tokRaw)
		if err != nil {
			_, _ = s.store.CompareAndDelete(ctx, tokKey, tokRaw)
			return nil, ErrNotFound
		}
		if record.FamilyID != familyID {
			return nil, ErrNotFound
		}

		now := time.Now()
		if now.Unix() > record.ExpiresAt {
			return nil, ErrNotFound
		}

		if record.Status != StatusActive {
			// Replay: this token was already superseded or revoked.
			// Burn the whole family and flip the presented record so
			// store state matches the verdict.
			revoked := *record
			revoked.Status = StatusRevoked
			if encoded, encErr := encodeTokenRecord(&revoked); encErr == nil {
				remaining := time.Until(time.Unix(record.ExpiresAt, 0))
				_, _ = s.store.CompareAndSwap(ctx, tokKey, tokRaw, encoded, remaining)
			}
			if err := s.RevokeFamily(ctx, familyID); err != nil {
				return nil, err
			}
			return nil, ErrReuseDetected
		}

		rotated := *record
		rotated.Status = StatusRotated
		rotatedEncoded, err := encodeTokenRecord(&rotated)
		if err != nil {
			return nil, err
		}
		remaining := time.Until(time.Unix(record.ExpiresAt, 0))
		swapped, err := s.store.CompareAndSwap(ctx, tokKey, tokRaw, rotatedEncoded, remaining)
		if err != nil {
			return nil, err
		}
		if !swapped {
			continue
		}

		expiresAt := now.Add(ttl).Unix()
		next := &TokenRecord{
			FamilyID:  familyID,
			UserID:    record.UserID,
			Status:    StatusActive,
			ExpiresAt: expiresAt,
		}
		nextEncoded, err := encodeTokenRecord(next)
		if err != nil {
			return nil, err
		}
		if err := s.store.Put(ctx, s.tokenKey(newJTI), nextEncoded, ttl); err != nil {
			return nil, err
		}

		// Extend the family window alongside the new token. If the swap
		// loses, the only possible writer is a concurrent revocation;
		// honor it and retract the token just minted.
		extended := *family
		extended.ExpiresAt = expiresAt
		extendedEncoded, err := encodeFamilyRecord(&extended)
		if err != nil {
			return nil, err
		}
		famSwapped, err := s.store.CompareAndSwap(ctx, famKey, famRaw, extendedEncoded, ttl)
		if err != nil {
			return nil, err
		}
		if !famSwapped {
			_ = s.store.Delete(ctx, s.tokenKey(newJTI))
			return nil, ErrFamilyRevoked
		}

		return next, nil
	}

	return nil, ErrNotFound
}

// RevokeFamily marks the family revoked. Idempotent: revoking an
// unknown or already-revoked family is a no-op, never an error.
func (s *RefreshStore) RevokeFamily(ctx context.Context, familyID string) error {
	famKey := s.familyKey(familyID)

	famRaw, err := s.store.Get(ctx, famKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	family, err := decodeFamilyRecord(famRaw)
	if err != nil {
		return s.store.Delete(ctx, famKey)
	}
	if family.Revoked {
		return nil
	}

	family.Revoked = true
	encoded, err := encodeFamilyRecord(family)
	if err != nil {
		return err
	}
	// The tombstone must outlive every descendant token. Revoked is
	// absorbing, so an unconditional overwrite is safe under races.
	remaining := time.Until(time.Unix(family.ExpiresAt, 0))
	return s.store.Put(ctx, famKey, encoded, remaining)
}

// FamilyRevoked reports whether the family currently carries a
// revocation tombstone. Absent families report false.
func (s *RefreshStore) FamilyRevoked(ctx context.Context, familyID string) (bool, error) {
	famRaw, err := s.store.Get(ctx, s.familyKey(familyID))
	if errors.Is(err, kv.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	family, err := decodeFamilyRecord(famRaw)
	if err != nil {
		return false, nil
	}
	return family.Revoked, nil
}

func encodeTokenRecord(record *TokenRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(refreshRecordVersionV1)
	buf.WriteByte(byte(record.Status))
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	for _, field := range []string{record.FamilyID, record.UserID} {
		if len(field) > 65535 {
			return nil, errors.New("refresh record field too long")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	return buf.Bytes(), nil
}

func decodeTokenRecord(data []byte) (*TokenRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != refreshRecordVersionV1 {
		return nil, errors.New("invalid refresh record version")
	}

	status, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if status > byte(StatusRevoked) {
		return nil, errors.New("invalid refresh record status")
	}

	record := &TokenRecord{Status: TokenStatus(status)}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	for _, target := range []*string{&record.FamilyID, &record.UserID} {
		var fieldLen uint16
		if err := binary.Read(reader, binary.BigEndian, &fieldLen); err != nil {
			return nil, err
		}
		field := make([]byte, fieldLen)
		if _, err := io.ReadFull(reader, field); err != nil {
			return nil, err
		}
		*target = string(field)
	}

	return record, nil
}

func encodeFamilyRecord(record *FamilyRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(familyRecordVersionV1)
	if record.Revoked {
		buf.WriteByte(1)
	} else {
		buf.WriteByte(0)
	}
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if len(record.UserID) > 65535 {
		return nil, errors.New("family record user id too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.UserID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.UserID)

	return buf.Bytes(), nil
}

func decodeFamilyRecord(data []byte) (*FamilyRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != familyRecordVersionV1 {
		return nil, errors.New("invalid family record version")
	}

	revoked, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	record := &FamilyRecord{Revoked: revoked == 1}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	var userLen uint16
	if err := binary.Read(reader, binary.BigEndian, &userLen); err != nil {
		return nil, err
	}
	user := make([]byte, userLen)
	if _, err := io.ReadFull(reader, user); err != nil {
		return nil, err
	}
	record.UserID = string(user)

	return record, nil
}
