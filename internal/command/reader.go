// Package command reads the whitespace-separated operation stream that drives a
// warehouse run and applies it record by record.
//
// The stream starts with the number of records n, followed by n records:
//
//	add       <day> <id> <name> <stock> <demand>
//	betteradd <day> <id> <name> <stock> <demand>
//	restock   <id> <amount>
//	purchase  <day> <id> <amount>
//	delete    <id>
//
// Any other operation name counts as one record and is skipped on its own; its
// would-be arguments are read as the following records.
package command

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Operation names.
const (
	OpAdd       = "add"
	OpBetterAdd = "betteradd"
	OpRestock   = "restock"
	OpPurchase  = "purchase"
	OpDelete    = "delete"
)

var (
	ErrMissingHeader = errors.New("missing record count")
	ErrInvalidRecord = errors.New("invalid record")
	ErrTruncated     = errors.New("stream ended early")
)

// Record is one parsed operation. Fields an operation does not take stay zero.
type Record struct {
	Index  int // 1-based position in the stream
	Op     string
	Day    int
	ID     int
	Name   string
	Stock  int
	Demand int
	Amount int
}

// Known reports whether the operation is one the warehouse understands.
func (r Record) Known() bool {
	switch r.Op {
	case OpAdd, OpBetterAdd, OpRestock, OpPurchase, OpDelete:
		return true
	}
	return false
}

// Reader pulls records from an operation stream.
type Reader struct {
	scanner  *bufio.Scanner
	declared int
	read     int
	started  bool
}

// NewReader wraps r. The record count is read lazily on the first Next call.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	scanner.Split(bufio.ScanWords)
	return &Reader{scanner: scanner}
}

// Declared returns the record count announced by the stream header.
func (r *Reader) Declared() int {
	return r.declared
}

// Next returns the next record, or io.EOF once the declared count is reached.
func (r *Reader) Next() (Record, error) {
	if !r.started {
		if err := r.readHeader(); err != nil {
			return Record{}, err
		}
	}
	if r.read >= r.declared {
		return Record{}, io.EOF
	}
	r.read++
	rec := Record{Index: r.read}

	op, err := r.token(rec.Index, "operation")
	if err != nil {
		return Record{}, err
	}
	rec.Op = op

	switch op {
	case OpAdd, OpBetterAdd:
		err = r.ints(rec.Index, field{"day", &rec.Day}, field{"id", &rec.ID})
		if err == nil {
			rec.Name, err = r.token(rec.Index, "name")
		}
		if err == nil {
			err = r.ints(rec.Index, field{"stock", &rec.Stock}, field{"demand", &rec.Demand})
		}
	case OpRestock:
		err = r.ints(rec.Index, field{"id", &rec.ID}, field{"amount", &rec.Amount})
	case OpPurchase:
		err = r.ints(rec.Index, field{"day", &rec.Day}, field{"id", &rec.ID}, field{"amount", &rec.Amount})
	case OpDelete:
		err = r.ints(rec.Index, field{"id", &rec.ID})
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func (r *Reader) readHeader() error {
	r.started = true
	if !r.scanner.Scan() {
		if err := r.scanner.Err(); err != nil {
			return fmt.Errorf("read record count: %w", err)
		}
		return ErrMissingHeader
	}
	n, err := strconv.Atoi(r.scanner.Text())
	if err != nil || n < 0 {
		return fmt.Errorf("%w: record count %q", ErrInvalidRecord, r.scanner.Text())
	}
	r.declared = n
	return nil
}

type field struct {
	name string
	dst  *int
}

func (r *Reader) ints(index int, fields ...field) error {
	for _, f := range fields {
		tok, err := r.token(index, f.name)
		if err != nil {
			return err
		}
		v, err := strconv.Atoi(tok)
		if err != nil {
			return fmt.Errorf("%w %d: %s %q is not an integer", ErrInvalidRecord, index, f.name, tok)
		}
		*f.dst = v
	}
	return nil
}

func (r *Reader) token(index int, name string) (string, error) {
	if r.scanner.Scan() {
		return r.scanner.Text(), nil
	}
	if err := r.scanner.Err(); err != nil {
		return "", fmt.Errorf("read record %d: %w", index, err)
	}
	return "", fmt.Errorf("%w: record %d of %d has no %s", ErrTruncated, index, r.declared, name)
}
