package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-checkout/internal/domain/checkout"
)

// checkoutRequest is the POST /api/checkout body:
//
//	{"customer":{"id":"2","name":"Mary","email":"m@example.com","tier":"PREMIUM"},
//	 "items":[{"name":"Notebook","price":150.00}],
//	 "paymentToken":"tok_visa"}
//
// Prices may be JSON numbers or decimal strings.
type checkoutRequest struct {
	Customer     checkout.Customer
	Items        []checkout.Item
	PaymentToken string
}

func decodeCheckoutRequest(data []byte) (checkoutRequest, error) {
	var req checkoutRequest
	if err := jx.DecodeBytes(data).Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "customer":
			return decodeCustomer(d, &req.Customer)
		case "items":
			return d.Arr(func(d *jx.Decoder) error {
				item, err := decodeItem(d)
				if err != nil {
					return err
				}
				req.Items = append(req.Items, item)
				return nil
			})
		case "paymentToken":
			v, err := d.Str()
			req.PaymentToken = v
			return err
		default:
			return d.Skip()
		}
	}); err != nil {
		return req, err
	}

	if req.PaymentToken == "" {
		return req, errors.New("paymentToken is required")
	}
	return req, nil
}

func decodeCustomer(d *jx.Decoder, c *checkout.Customer) error {
	return d.Obj(func(d *jx.Decoder, key string) error {
		var (
			v   string
			err error
		)
		switch key {
		case "id", "name", "email", "tier":
			v, err = d.Str()
		default:
			return d.Skip()
		}
		if err != nil {
			return errors.Wrapf(err, "customer.%s", key)
		}
		switch key {
		case "id":
			c.ID = v
		case "name":
			c.Name = v
		case "email":
			c.Email = v
		case "tier":
			c.Tier = checkout.ParseTier(v)
		}
		return nil
	})
}

func decodeItem(d *jx.Decoder) (checkout.Item, error) {
	var (
		name  string
		price decimal.Decimal
		seen  bool
	)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		switch key {
		case "name":
			v, err := d.Str()
			name = v
			return err
		case "price":
			p, err := decodeDecimal(d)
			if err != nil {
				return errors.Wrap(err, "price")
			}
			price, seen = p, true
			return nil
		default:
			return d.Skip()
		}
	}); err != nil {
		return checkout.Item{}, err
	}
	if !seen {
		return checkout.Item{}, errors.Errorf("item %q: price is required", name)
	}
	return checkout.NewItem(name, price)
}

func decodeDecimal(d *jx.Decoder) (decimal.Decimal, error) {
	switch d.Next() {
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(s)
	case jx.Number:
		n, err := d.Num()
		if err != nil {
			return decimal.Decimal{}, err
		}
		return decimal.NewFromString(string(n))
	default:
		return decimal.Decimal{}, errors.Errorf("unexpected %s", d.Next())
	}
}

// encodeOrder writes an order. Prices are whole cents (see checkout.NewItem),
// so rendering money with two decimals is exact.
func encodeOrder(e *jx.Encoder, o *checkout.Order) {
	e.ObjStart()
	e.FieldStart("id")
	e.Int64(o.ID)
	e.FieldStart("customerId")
	e.Str(o.CustomerID)
	e.FieldStart("status")
	e.Str(string(o.Status))
	e.FieldStart("subtotal")
	e.Str(o.Subtotal.StringFixed(2))
	e.FieldStart("total")
	e.Str(o.Total.StringFixed(2))
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("price")
		e.Str(it.Price.StringFixed(2))
		e.ObjEnd()
	}
	e.ArrEnd()
	if !o.CreatedAt.IsZero() {
		e.FieldStart("createdAt")
		e.Str(o.CreatedAt.UTC().Format(time.RFC3339))
	}
	e.ObjEnd()
}

func writeJSON(w http.ResponseWriter, status int, e *jx.Encoder) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

func writeError(w http.ResponseWriter, status int, message string) {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("code")
	e.Int(status)
	e.FieldStart("message")
	e.Str(message)
	e.ObjEnd()
	writeJSON(w, status, &e)
}
