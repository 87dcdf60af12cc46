package submit

import (
	"strconv"
	"strings"

	"assetadmin/internal/catalog"
)

const notAvailable = "N/A"

// OwnershipDetail: атрибуты собственности
type OwnershipDetail struct {
	OwnershipType string  `json:"ownershipType"`
	OwnerName     string  `json:"ownerName"`
	TitleDeedNo   string  `json:"titleDeedNo"`
	PurchaseDate  string  `json:"purchaseDate"`
	PurchasePrice float64 `json:"purchasePrice"`
	DeedExpiry    string  `json:"deedExpiry"`
}

// LeaseDetail: атрибуты аренды
type LeaseDetail struct {
	LandlordName     string  `json:"landlordName"`
	LeaseStartDate   string  `json:"leaseStartDate"`
	LeaseEndDate     string  `json:"leaseEndDate"`
	AnnualRent       float64 `json:"annualRent"`
	PaymentFrequency string  `json:"paymentFrequency"`
	ReminderDays     int     `json:"reminderDays"`
}

func text(vals catalog.Values, fallback string, keys ...string) string {
	for _, k := range keys {
		if vals.Present(k) {
			return strings.TrimSpace(vals[k].Text())
		}
	}
	return fallback
}

func amount(vals catalog.Values, keys ...string) float64 {
	for _, k := range keys {
		v, ok := vals[k]
		if !ok {
			continue
		}
		if n, ok := v.Num(); ok {
			return n
		}
		s := strings.ReplaceAll(strings.TrimSpace(v.Text()), ",", "")
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return 0
}

func buildOwnership(vals catalog.Values) OwnershipDetail {
	return OwnershipDetail{
		OwnershipType: strings.ToUpper(text(vals, "OWNED", "ownershipType")),
		OwnerName:     text(vals, notAvailable, "ownerName"),
		TitleDeedNo:   text(vals, notAvailable, "titleDeedNo", "titleDeed_policyNo"),
		PurchaseDate:  text(vals, "", "purchaseDate"),
		PurchasePrice: amount(vals, "purchasePrice"),
		DeedExpiry:    text(vals, "", "titleDeed_expiry"),
	}
}

func buildLease(vals catalog.Values) LeaseDetail {
	d := LeaseDetail{
		LandlordName:     text(vals, notAvailable, "landlordName"),
		LeaseStartDate:   text(vals, "", "leaseStartDate", "leaseAgreement_startDate"),
		LeaseEndDate:     text(vals, "", "leaseEndDate", "leaseAgreement_endDate"),
		AnnualRent:       amount(vals, "annualRent"),
		PaymentFrequency: strings.ToUpper(text(vals, "YEARLY", "paymentFrequency")),
	}
	if n, err := strconv.Atoi(text(vals, "", "leaseAgreement_reminder")); err == nil {
		d.ReminderDays = n
	}
	return d
}
