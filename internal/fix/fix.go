// Package fix implements a thin FIX 4.4 tag=value codec covering just
// two message types: NewOrderSingle (35=D) and OrderCancelRequest
// (35=F). It is a wire transport into the core, not part of it.
package fix

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"tricore/internal/book"
)

const soh = "\x01"

// Tag numbers used by the messages this package understands.
const (
	tagBeginString  = 8
	tagBodyLength   = 9
	tagMsgType      = 35
	tagSenderCompID = 49
	tagTargetCompID = 56
	tagMsgSeqNum    = 34
	tagClOrdID      = 11
	tagSide         = 54
	tagOrderQty     = 38
	tagPrice        = 44
	tagCheckSum     = 10
)

// MsgType identifies the two message types decoded here.
type MsgType string

const (
	NewOrderSingle     MsgType = "D"
	OrderCancelRequest MsgType = "F"

	// Unknown is returned by Decode for any 35= value other than D or F.
	// It is not an error condition: the message parsed and checksummed
	// fine, this codec just has no typed payload for it.
	Unknown MsgType = "UNKNOWN"
)

// ErrChecksum is returned when a decoded message's trailer checksum
// does not match the recomputed one.
var ErrChecksum = errors.New("fix: checksum mismatch")

// NewOrder is a decoded NewOrderSingle, mapped directly to the fields
// book.Book.Add needs.
type NewOrder struct {
	ClOrdID string
	Side    book.Side
	Price   float64
	Qty     int64
}

// CancelRequest is a decoded OrderCancelRequest.
type CancelRequest struct {
	ClOrdID string
}

// Session holds the two comp ids stamped onto every encoded message.
type Session struct {
	SenderCompID string
	TargetCompID string
	seqNum       int
}

// NewSession starts a session with sequence numbers beginning at 1.
func NewSession(sender, target string) *Session {
	return &Session{SenderCompID: sender, TargetCompID: target}
}

// EncodeNewOrderSingle renders a NewOrderSingle for order into tag=value
// form delimited by SOH, with BodyLength and CheckSum computed and
// appended.
func (s *Session) EncodeNewOrderSingle(order NewOrder) string {
	s.seqNum++
	sideTag := "1"
	if order.Side == book.Sell {
		sideTag = "2"
	}
	body := fields(
		field(tagMsgType, string(NewOrderSingle)),
		field(tagSenderCompID, s.SenderCompID),
		field(tagTargetCompID, s.TargetCompID),
		field(tagMsgSeqNum, strconv.Itoa(s.seqNum)),
		field(tagClOrdID, order.ClOrdID),
		field(tagSide, sideTag),
		field(tagOrderQty, strconv.FormatInt(order.Qty, 10)),
		field(tagPrice, strconv.FormatFloat(order.Price, 'f', -1, 64)),
	)
	return frame(body)
}

// EncodeOrderCancelRequest renders an OrderCancelRequest for clOrdID.
func (s *Session) EncodeOrderCancelRequest(clOrdID string) string {
	s.seqNum++
	body := fields(
		field(tagMsgType, string(OrderCancelRequest)),
		field(tagSenderCompID, s.SenderCompID),
		field(tagTargetCompID, s.TargetCompID),
		field(tagMsgSeqNum, strconv.Itoa(s.seqNum)),
		field(tagClOrdID, clOrdID),
	)
	return frame(body)
}

func field(tag int, value string) string {
	return fmt.Sprintf("%d=%s", tag, value)
}

func fields(fs ...string) string {
	return strings.Join(fs, soh) + soh
}

// frame prepends BeginString/BodyLength and appends the checksum
// trailer over a pre-built body.
func frame(body string) string {
	head := field(tagBeginString, "FIX.4.4") + soh + field(tagBodyLength, strconv.Itoa(len(body))) + soh
	msg := head + body
	return msg + field(tagCheckSum, checksum(msg)) + soh
}

// checksum is the sum of the message's raw bytes mod 256, formatted as
// three zero-padded digits, per FIX 4.4.
func checksum(msg string) string {
	var sum int
	for i := 0; i < len(msg); i++ {
		sum += int(msg[i])
	}
	return fmt.Sprintf("%03d", sum%256)
}

// Decode parses a raw tag=value message and returns whichever of
// NewOrder or CancelRequest it represents, keyed by MsgType.
func Decode(raw string) (MsgType, any, error) {
	tags, err := parseTags(raw)
	if err != nil {
		return "", nil, err
	}

	if err := verifyChecksum(raw, tags); err != nil {
		return "", nil, err
	}

	switch MsgType(tags[tagMsgType]) {
	case NewOrderSingle:
		price, err := strconv.ParseFloat(tags[tagPrice], 64)
		if err != nil {
			return "", nil, fmt.Errorf("fix: price: %w", err)
		}
		qty, err := strconv.ParseInt(tags[tagOrderQty], 10, 64)
		if err != nil {
			return "", nil, fmt.Errorf("fix: order qty: %w", err)
		}
		side := book.Buy
		if tags[tagSide] == "2" {
			side = book.Sell
		}
		return NewOrderSingle, NewOrder{
			ClOrdID: tags[tagClOrdID],
			Side:    side,
			Price:   price,
			Qty:     qty,
		}, nil
	case OrderCancelRequest:
		return OrderCancelRequest, CancelRequest{ClOrdID: tags[tagClOrdID]}, nil
	default:
		return Unknown, nil, nil
	}
}

func parseTags(raw string) (map[int]string, error) {
	tags := make(map[int]string)
	for _, pair := range strings.Split(strings.TrimSuffix(raw, soh), soh) {
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, fmt.Errorf("fix: malformed field %q", pair)
		}
		tag, err := strconv.Atoi(kv[0])
		if err != nil {
			return nil, fmt.Errorf("fix: malformed tag %q", kv[0])
		}
		tags[tag] = kv[1]
	}
	if _, ok := tags[tagMsgType]; !ok {
		return nil, errors.New("fix: missing 35=MsgType")
	}
	return tags, nil
}

func verifyChecksum(raw string, tags map[int]string) error {
	want, ok := tags[tagCheckSum]
	if !ok {
		return errors.New("fix: missing 10=CheckSum")
	}
	idx := strings.LastIndex(raw, field(tagCheckSum, want)+soh)
	if idx < 0 {
		return ErrChecksum
	}
	got := checksum(raw[:idx])
	if got != want {
		return ErrChecksum
	}
	return nil
}
