package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"warehouse/internal/inventory"
)

// recorder captures the calls a replay makes.
type recorder struct {
	calls []string
}

func (r *recorder) AddProduct(id int, name string, stock, day, demand int) {
	r.calls = append(r.calls, fmt.Sprintf("add %d %s %d %d %d", id, name, stock, day, demand))
}

func (r *recorder) BetterAddProduct(id int, name string, stock, day, demand int) {
	r.calls = append(r.calls, fmt.Sprintf("betteradd %d %s %d %d %d", id, name, stock, day, demand))
}

func (r *recorder) RestockProduct(id, amount int) {
	r.calls = append(r.calls, fmt.Sprintf("restock %d %d", id, amount))
}

func (r *recorder) PurchaseProduct(id, day, amount int) {
	r.calls = append(r.calls, fmt.Sprintf("purchase %d %d %d", id, day, amount))
}

func (r *recorder) DeleteProduct(id int) {
	r.calls = append(r.calls, fmt.Sprintf("delete %d", id))
}

func (r *recorder) Dump() string { return strings.Join(r.calls, "\n") }

func TestReader_Next(t *testing.T) {
	stream := `6
add 0 41 widget 12 3
restock 41 5
purchase 2 41 4
delete 41
betteradd 1 7 gadget 2 9
restock   7
   1`
	reader := NewReader(strings.NewReader(stream))

	want := []Record{
		{Index: 1, Op: OpAdd, Day: 0, ID: 41, Name: "widget", Stock: 12, Demand: 3},
		{Index: 2, Op: OpRestock, ID: 41, Amount: 5},
		{Index: 3, Op: OpPurchase, Day: 2, ID: 41, Amount: 4},
		{Index: 4, Op: OpDelete, ID: 41},
		{Index: 5, Op: OpBetterAdd, Day: 1, ID: 7, Name: "gadget", Stock: 2, Demand: 9},
		{Index: 6, Op: OpRestock, ID: 7, Amount: 1},
	}
	for _, w := range want {
		got, err := reader.Next()
		if err != nil {
			t.Fatalf("Next() record %d error = %v", w.Index, err)
		}
		if got != w {
			t.Errorf("Next() = %+v, want %+v", got, w)
		}
		if !got.Known() {
			t.Errorf("record %d reported unknown", got.Index)
		}
	}
	if _, err := reader.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next() after last record error = %v, want io.EOF", err)
	}
	if reader.Declared() != 6 {
		t.Errorf("Declared() = %d, want 6", reader.Declared())
	}
}

func TestReader_Errors(t *testing.T) {
	tests := []struct {
		name   string
		stream string
		want   error
	}{
		{name: "empty stream", stream: "", want: ErrMissingHeader},
		{name: "non numeric count", stream: "many add", want: ErrInvalidRecord},
		{name: "negative count", stream: "-1", want: ErrInvalidRecord},
		{name: "non numeric id", stream: "1 delete x", want: ErrInvalidRecord},
		{name: "missing argument", stream: "1 purchase 3 4", want: ErrTruncated},
		{name: "missing record", stream: "2 delete 4", want: ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reader := NewReader(strings.NewReader(tt.stream))
			var err error
			for err == nil {
				_, err = reader.Next()
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestReplayer_UnknownOperationConsumesOneRecord(t *testing.T) {
	rec := &recorder{}
	summary, err := NewReplayer(rec, false).Replay(context.Background(), strings.NewReader("3 audit delete 5 delete 6"))
	if err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if summary.Declared != 3 || summary.Applied != 2 || summary.Skipped != 1 {
		t.Errorf("summary = %+v, want 3 declared, 2 applied, 1 skipped", summary)
	}
	if got := rec.Dump(); got != "delete 5\ndelete 6" {
		t.Errorf("calls = %q", got)
	}
}

func TestReplayer_Placement(t *testing.T) {
	tests := []struct {
		name    string
		bestFit bool
		want    string
	}{
		{name: "home placement", bestFit: false, want: "add 3 a 1 0 2\nbetteradd 4 b 1 0 2"},
		{name: "best placement", bestFit: true, want: "betteradd 3 a 1 0 2\nbetteradd 4 b 1 0 2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recorder{}
			_, err := NewReplayer(rec, tt.bestFit).Replay(context.Background(),
				strings.NewReader("2 add 0 3 a 1 2 betteradd 0 4 b 1 2"))
			if err != nil {
				t.Fatalf("Replay() error = %v", err)
			}
			if got := rec.Dump(); got != tt.want {
				t.Errorf("calls = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReplayer_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec := &recorder{}
	_, err := NewReplayer(rec, false).Replay(ctx, strings.NewReader("1 delete 1"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Replay() error = %v, want context.Canceled", err)
	}
	if len(rec.calls) != 0 {
		t.Errorf("records applied after cancellation: %v", rec.calls)
	}
}

func TestReplayer_KeepsAppliedRecordsOnError(t *testing.T) {
	rec := &recorder{}
	summary, err := NewReplayer(rec, false).Replay(context.Background(), strings.NewReader("2 delete 1 delete"))
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("Replay() error = %v, want ErrTruncated", err)
	}
	if summary.Applied != 1 || len(rec.calls) != 1 {
		t.Errorf("summary = %+v calls = %v, want the first record applied", summary, rec.calls)
	}
}

func TestReplayer_EndToEnd(t *testing.T) {
	w, err := inventory.New(inventory.DefaultConfig())
	if err != nil {
		t.Fatalf("inventory.New() error = %v", err)
	}
	stream := `9
add 0 1 a 50 10
add 0 11 b 50 5
add 0 21 c 50 20
add 0 31 d 50 1
add 0 41 e 50 15
add 0 51 f 50 3
purchase 5 1 100
restock 11 4
delete 21`

	if _, err := NewReplayer(w, false).Replay(context.Background(), strings.NewReader(stream)); err != nil {
		t.Fatalf("Replay() error = %v", err)
	}
	if err := w.Verify(); err != nil {
		t.Fatalf("invariants violated: %v", err)
	}
	if _, ok := w.Locate(31); ok {
		t.Errorf("product 31 should have been evicted")
	}
	if _, ok := w.Locate(21); ok {
		t.Errorf("product 21 should have been deleted")
	}
	p, _ := w.Product(1)
	if p.Stock != 50 || p.Demand != 10 {
		t.Errorf("rejected purchase changed product 1: %+v", p)
	}
	p, _ = w.Product(11)
	if p.Stock != 54 {
		t.Errorf("product 11 stock = %d, want 54", p.Stock)
	}
	if s := w.Stats(); s.RejectedPurchases != 1 || s.Evictions != 1 {
		t.Errorf("stats = %+v, want 1 rejected purchase and 1 eviction", s)
	}
}
