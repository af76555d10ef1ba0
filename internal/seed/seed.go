// Package seed generates demo call records.
package seed

import (
	"fmt"
	"strings"
	"time"

	"github.com/TobiSchelling/TradeCheck/internal/calls"
)

type sample struct {
	category    string
	transcripts []string
}

var samples = []sample{
	{"Steel Rods", []string{
		"Hello, I need 500 kg of 12 mm steel rods for construction. What's your price? Seller: Rs 45000 per ton, we deliver in Delhi. Buyer: Good, send me the specs grade A. Deal confirmed.",
		"Hi, looking for steel rods 16 mm. How much for 200 kg? Seller: INR 9500. Buyer: Price is a bit high. Can you do Rs 9000? Seller: Okay fine, 9000 per 200kg.",
		"Need TMT bars urgently, 10 mm size. 1000 kg quantity. Seller: Rs 48 per kg. Grade B available. Buyer: Yes ok, please confirm delivery to Mumbai by Thursday.",
	}},
	{"Textiles", []string{
		"I want 500 meters of cotton fabric for garment manufacturing. Seller: Rs 120 per meter, good quality. Buyer: Send samples first. Seller: Yes sure, will courier today.",
		"Hello, do you have silk fabric? Need 200 meters. Seller: Yes, Rs 450 per meter. Premium quality. Buyer: Price okay, but need it in Bengaluru. Seller: We deliver, no problem.",
		"Looking for polyester blend 300 meters. Seller: INR 85 per meter. Buyer: Good deal, confirm the order.",
	}},
	{"Electronics Components", []string{
		"Need 1000 units of resistors 10k ohm. What price? Seller: Rs 2 per piece. Buyer: Okay good, ship to Hyderabad. Seller: Done, will dispatch tomorrow.",
		"Hi, I want microcontrollers ESP32. 200 units needed. Seller: INR 250 per unit. Buyer: Price is okay. Send invoice. Seller: Yes, confirmed.",
		"Looking for capacitors 100uF. 500 pieces. Seller: Rs 5 per piece. Buyer: Deal fine, please pack properly for shipping.",
	}},
	{"Agriculture Seeds", []string{
		"I need wheat seeds for 50 acres. How much per kg? Seller: Rs 45 per kg, certified seeds. Buyer: Good variety? Seller: Yes grade A, high yield. Buyer: Okay send 200 kg to Jaipur.",
		"Want rice seeds, 100 kg. Seller: INR 60 per kg. Buyer: Delivery to Pune? Seller: Yes we deliver. Buyer: Fine, confirm order.",
		"Need corn seeds urgently. 150 kg. Seller: Rs 55 per kg. Buyer: Good, ship to Surat tomorrow.",
	}},
	{"Packaging Materials", []string{
		"Hello, need corrugated boxes for packaging. 500 units, what size available? Seller: 12x10x8 inches, Rs 25 per box. Buyer: Good, confirm order for Chennai delivery.",
		"I want plastic containers 1 liter size. 1000 pieces. Seller: INR 15 per piece. Buyer: Okay deal, send to Kolkata. Seller: Yes confirmed.",
		"Need bubble wrap rolls. 200 meters. Seller: Rs 35 per meter. Buyer: Price okay, please dispatch today.",
	}},
	{"Furniture", []string{
		"Looking for office chairs. Need 50 units. Seller: Rs 3500 per chair, ergonomic design. Buyer: Good quality? Seller: Yes premium. Buyer: Okay confirm, deliver to Delhi office.",
		"Hi, want wooden desks. 20 pieces needed. Seller: INR 8500 per desk. Buyer: Price fine, send dimensions. Seller: Will share catalog.",
		"Need conference table. 5 meter size. Seller: Rs 45000 for custom made. Buyer: Good, finalize the design and confirm.",
	}},
}

type city struct {
	name, state string
}

var cities = []city{
	{"Delhi", "Delhi"},
	{"Mumbai", "Maharashtra"},
	{"Bengaluru", "Karnataka"},
	{"Hyderabad", "Telangana"},
	{"Chennai", "Tamil Nadu"},
	{"Kolkata", "West Bengal"},
	{"Jaipur", "Rajasthan"},
	{"Surat", "Gujarat"},
	{"Pune", "Maharashtra"},
}

// Categories returns the demo category names in order.
func Categories() []string {
	out := make([]string, len(samples))
	for i, s := range samples {
		out[i] = s.category
	}
	return out
}

// Records builds one record per demo transcript. Cities rotate so every
// city appears, and calls are spread over the 30 days before now.
func Records(now time.Time) []calls.Record {
	base := now.AddDate(0, 0, -30)
	var out []calls.Record
	n := 0
	for _, s := range samples {
		for _, text := range s.transcripts {
			n++
			c := cities[(n-1)%len(cities)]
			out = append(out, calls.Process(calls.Transcript{
				Text: text,
				Metadata: calls.Metadata{
					SellerID:   fmt.Sprintf("S-%03d", n),
					BuyerID:    fmt.Sprintf("B-%03d", n),
					City:       c.name,
					State:      c.state,
					Category:   s.category,
					CategoryID: strings.ToLower(strings.ReplaceAll(s.category, " ", "_")),
				},
				ReceivedAt: base.Add(time.Duration(n*37) * time.Hour).UTC(),
			}))
		}
	}
	return out
}

// Into appends the demo records to store and returns how many were written.
func Into(store calls.Store, now time.Time) (int, error) {
	recs := Records(now)
	for i, r := range recs {
		if err := store.AppendCall(r); err != nil {
			return i, fmt.Errorf("storing demo call %d: %w", i+1, err)
		}
	}
	return len(recs), nil
}
