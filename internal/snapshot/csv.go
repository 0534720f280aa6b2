// Package snapshot stores fetched subscribers as CSV so ranking can run
// again without another API call.
package snapshot

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"giftboard/internal/model"
)

// Header is the fixed column order of the subscriber file.
var Header = []string{"User ID", "User Name", "User Login", "Plan Name", "Tier", "Is Gift", "Gifter Name"}

// RawRecord is one CSV row. All fields stay strings.
type RawRecord struct {
	UserID     string
	UserName   string
	UserLogin  string
	PlanName   string
	Tier       string
	IsGift     string
	GifterName string
}

func (r RawRecord) fields() []string {
	return []string{r.UserID, r.UserName, r.UserLogin, r.PlanName, r.Tier, r.IsGift, r.GifterName}
}

func fromFields(f []string) RawRecord {
	var padded [7]string
	copy(padded[:], f)
	return RawRecord{
		UserID:     padded[0],
		UserName:   padded[1],
		UserLogin:  padded[2],
		PlanName:   padded[3],
		Tier:       padded[4],
		IsGift:     padded[5],
		GifterName: padded[6],
	}
}

// Encode turns a subscriber into its row.
func Encode(s model.Subscriber) RawRecord {
	isGift := "False"
	if s.IsGift {
		isGift = "True"
	}
	return RawRecord{
		UserID:     s.UserID,
		UserName:   s.UserName,
		UserLogin:  s.UserLogin,
		PlanName:   s.PlanName,
		Tier:       s.Tier,
		IsGift:     isGift,
		GifterName: s.Gifter.String(),
	}
}

// Subscriber converts the row back. An empty Gifter Name reads as no gifter.
func (r RawRecord) Subscriber() model.Subscriber {
	g := model.NoGifter()
	if r.GifterName != "" {
		g = model.SomeGifter(r.GifterName)
	}
	return model.Subscriber{
		UserID:    r.UserID,
		UserName:  r.UserName,
		UserLogin: r.UserLogin,
		PlanName:  r.PlanName,
		Tier:      r.Tier,
		IsGift:    parseBool(r.IsGift),
		Gifter:    g,
	}
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

// Write emits the header and one row per subscriber.
func Write(w io.Writer, subs []model.Subscriber) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, s := range subs {
		if err := cw.Write(Encode(s).fields()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Read parses rows after the header. Short rows are padded with empty fields.
func Read(r io.Reader) ([]RawRecord, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(head) == 0 || strings.TrimPrefix(head[0], "\ufeff") != Header[0] {
		return nil, fmt.Errorf("unexpected header %q", head)
	}
	var out []RawRecord
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, fromFields(row))
	}
}

// Save writes subs to path, replacing any previous file.
func Save(path string, subs []model.Subscriber) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, subs); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Load reads the rows stored at path.
func Load(path string) ([]RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Subscribers converts loaded rows in order.
func Subscribers(rows []RawRecord) []model.Subscriber {
	out := make([]model.Subscriber, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Subscriber())
	}
	return out
}
