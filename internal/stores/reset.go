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
	ticketKeyPrefix       = "ticket"
	ticketRecordVersionV1 = 1
)

// TicketRecord is the stored state behind one password-reset ticket.
type TicketRecord struct {
	RecipientID string
	ExpiresAt   int64
}

// TicketStore holds one-time reset tickets keyed by the opaque ticket
// string itself. The ticket carries 256 bits of entropy, so the key is
// unguessable and consumption is a single take-and-delete.
type TicketStore struct {
	store kv.Store
}

func NewTicketStore(store kv.Store) *TicketStore {
	return &TicketStore{store: store}
}

func (s *TicketStore) key(ticket string) string {
	return ticketKeyPrefix + ":" + ticket
}

func (s *TicketStore) Save(ctx context.Context, ticket string, record *TicketRecord, ttl time.Duration) error {
	encoded, err := encodeTicketRecord(record)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, s.key(ticket), encoded, ttl)
}

// Consume atomically takes and deletes the ticket. Exactly one of N
// concurrent callers receives the record; the rest get ErrNotFound.
// A ticket is spent regardless of what the caller does afterwards.
func (s *TicketStore) Consume(ctx context.Context, ticket string) (*TicketRecord, error) {
	raw, err := s.store.TakeAndDelete(ctx, s.key(ticket))
	if errors.Is(err, kv.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	record, err := decodeTicketRecord(raw)
	if err != nil {
		return nil, ErrNotFound
	}
	if time.Now().Unix() > record.ExpiresAt {
		return nil, ErrNotFound
	}
	return record, nil
}

func encodeTicketRecord(record *TicketRecord) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(ticketRecordVersionV1)
	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	if len(record.RecipientID) > 65535 {
		return nil, errors.New("ticket record recipient id too long")
	}
	if err := binary.Write(&buf, binary.BigEndian, uint16(len(record.RecipientID))); err != nil {
		return nil, err
	}
	buf.WriteString(record.RecipientID)

	return buf.Bytes(), nil
}

func decodeTicketRecord(data []byte) (*TicketRecord, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != ticketRecordVersionV1 {
		return nil, errors.New("invalid ticket record version")
	}

	record := &TicketRecord{}
	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	var recipientLen uint16
	if err := binary.Read(reader, binary.BigEndian, &recipientLen); err != nil {
		return nil, err
	}
	recipient := make([]byte, recipientLen)
	if _, err := io.ReadFull(reader, recipient); err != nil {
		return nil, err
	}
	record.RecipientID = string(recipient)

	return record, nil
}
