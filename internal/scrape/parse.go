package scrape

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/willbeeching/boilerjuice/internal/models"
)

var (
	tankLinkRe = regexp.MustCompile(`/uk/users/tanks/(\d+)`)
	volumeRe   = regexp.MustCompile(`(\d+)\s*litres?\s+(?:of\s+)?oil`)
	priceRe    = regexp.MustCompile(`(\d+\.\d+)\s*pence per litre`)
)

var errNoLevel = errors.New("tank page has no oil level")

// parseTankPage extracts the reading and tank attributes from the tank edit
// page. BoilerJuice has renamed its element ids over the years, so some
// fields try the current id first and fall back to the legacy one.
func parseTankPage(doc *goquery.Document) (models.Reading, models.TankInfo, error) {
	var (
		reading models.Reading
		info    models.TankInfo
	)

	// The oil-level gauge carries the percentage as a data attribute.
	pctAttr, ok := doc.Find("#usable-oil .oil-level").Attr("data-percentage")
	if !ok {
		return reading, info, errNoLevel
	}
	pct, err := strconv.ParseFloat(strings.TrimSpace(pctAttr), 64)
	if err != nil {
		return reading, info, errors.New("tank page has a malformed oil level")
	}
	reading.LevelPercent = pct

	if v, ok := inputValue(doc, "#tank_size", "#tank-size-count"); ok {
		reading.CapacityLitres = v
	}
	if v, ok := inputValue(doc, "#internal_height", "#tank-height-count"); ok {
		info.HeightCM = int(v)
	}

	// The litres figure only appears in prose ("you have 850 litres of oil").
	if m := volumeRe.FindStringSubmatch(strings.ToLower(doc.Text())); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			reading.VolumeLitres = v
		}
	}

	if name, ok := doc.Find("input#tank_user_tanks_attributes_0_name").Attr("value"); ok {
		info.Name = strings.TrimSpace(name)
	}
	if oil := doc.Find("select#tank_oil_type_id option[selected]").First(); oil.Length() > 0 {
		info.OilType = strings.TrimSpace(oil.Text())
	}

	return reading, info, nil
}

// inputValue reads a numeric value attribute, trying each selector in turn.
func inputValue(doc *goquery.Document, selectors ...string) (float64, bool) {
	for _, sel := range selectors {
		if raw, ok := doc.Find("input" + sel).Attr("value"); ok {
			if v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
				return v, true
			}
		}
	}
	return 0, false
}

// parsePrice finds the "NN.NN pence per litre" figure, or nil if absent.
func parsePrice(body string) *float64 {
	m := priceRe.FindStringSubmatch(body)
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return nil
	}
	return &v
}
