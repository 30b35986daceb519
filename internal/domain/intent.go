package domain

import (
	"errors"
	"strconv"

	"github.com/shopspring/decimal"
)

// Channel represents the product category of a transaction intent
type Channel string

const (
	ChannelAirtime     Channel = "airtime"
	ChannelDataBundle  Channel = "data_bundle"
	ChannelElectricity Channel = "electricity"
	ChannelEducation   Channel = "education"
	ChannelTV          Channel = "tv"
	ChannelTransfer    Channel = "transfer"
)

// PaymentMethod represents the balance a transaction is funded from
type PaymentMethod string

const (
	PaymentMethodWallet   PaymentMethod = "wallet"
	PaymentMethodCashback PaymentMethod = "cashback"
)

// TransactionIntent is an immutable description of a requested operation.
// Each channel has its own concrete type so that the fields a channel
// requires are enforced statically rather than through optional fields.
// An intent is created by a screen at submit time and consumed exactly
// once by the submitter.
type TransactionIntent interface {
	// Channel returns the product category of the intent
	Channel() Channel

	// Method returns the balance the transaction is funded from
	Method() PaymentMethod

	// Amount returns the transaction amount in naira
	Amount() decimal.Decimal

	// Validate ensures the intent adheres to its channel's rules
	Validate() error

	// Fields returns the channel-specific wire fields for submission
	Fields() map[string]string
}

// AirtimeIntent represents an airtime top-up request
type AirtimeIntent struct {
	Phone         string
	NetworkCode   string // biller code of the mobile network
	PurchaseValue decimal.Decimal
	PayWith       PaymentMethod
}

func (i AirtimeIntent) Channel() Channel        { return ChannelAirtime }
func (i AirtimeIntent) Method() PaymentMethod   { return i.PayWith }
func (i AirtimeIntent) Amount() decimal.Decimal { return i.PurchaseValue }

// Validate ensures the airtime intent adheres to channel rules
func (i AirtimeIntent) Validate() error {
	if err := validateCommon(i.PurchaseValue, i.PayWith); err != nil {
		return err
	}
	if !validPhone(i.Phone) {
		return errors.New("airtime intent requires an 11-digit phone number")
	}
	if i.NetworkCode == "" {
		return errors.New("airtime intent requires a network code")
	}
	return nil
}

func (i AirtimeIntent) Fields() map[string]string {
	return map[string]string{
		"phone":        i.Phone,
		"billers_code": i.NetworkCode,
	}
}

// DataBundleIntent represents a data plan purchase request
type DataBundleIntent struct {
	Phone         string
	PlanID        string
	VariationCode string
	PurchaseValue decimal.Decimal
	PayWith       PaymentMethod
}

func (i DataBundleIntent) Channel() Channel        { return ChannelDataBundle }
func (i DataBundleIntent) Method() PaymentMethod   { return i.PayWith }
func (i DataBundleIntent) Amount() decimal.Decimal { return i.PurchaseValue }

// Validate ensures the data bundle intent adheres to channel rules
func (i DataBundleIntent) Validate() error {
	if err := validateCommon(i.PurchaseValue, i.PayWith); err != nil {
		return err
	}
	if !validPhone(i.Phone) {
		return errors.New("data bundle intent requires an 11-digit phone number")
	}
	if i.PlanID == "" {
		return errors.New("data bundle intent requires a plan ID")
	}
	if i.VariationCode == "" {
		return errors.New("data bundle intent requires a variation code")
	}
	return nil
}

func (i DataBundleIntent) Fields() map[string]string {
	return map[string]string{
		"phone":          i.Phone,
		"plan_id":        i.PlanID,
		"variation_code": i.VariationCode,
	}
}

// ElectricityIntent represents an electricity token purchase request
type ElectricityIntent struct {
	MeterNumber   string
	DiscoCode     string // biller code of the distribution company
	MeterType     string // "prepaid" or "postpaid"
	Phone         string
	PurchaseValue decimal.Decimal
	PayWith       PaymentMethod
}

func (i ElectricityIntent) Channel() Channel        { return ChannelElectricity }
func (i ElectricityIntent) Method() PaymentMethod   { return i.PayWith }
func (i ElectricityIntent) Amount() decimal.Decimal { return i.PurchaseValue }

// Validate ensures the electricity intent adheres to channel rules
func (i ElectricityIntent) Validate() error {
	if err := validateCommon(i.PurchaseValue, i.PayWith); err != nil {
		return err
	}
	if i.MeterNumber == "" {
		return errors.New("electricity intent requires a meter number")
	}
	if i.DiscoCode == "" {
		return errors.New("electricity intent requires a disco code")
	}
	if i.MeterType != "prepaid" && i.MeterType != "postpaid" {
		return errors.New("electricity meter type must be prepaid or postpaid")
	}
	return nil
}

func (i ElectricityIntent) Fields() map[string]string {
	return map[string]string{
		"billers_code":   i.MeterNumber,
		"plan_id":        i.DiscoCode,
		"variation_code": i.MeterType,
		"phone":          i.Phone,
	}
}

// EducationIntent represents an exam PIN purchase request
type EducationIntent struct {
	ProfileID     string
	ExamCode      string // variation code of the exam body (WAEC, JAMB, ...)
	Quantity      int
	PurchaseValue decimal.Decimal
	PayWith       PaymentMethod
}

func (i EducationIntent) Channel() Channel        { return ChannelEducation }
func (i EducationIntent) Method() PaymentMethod   { return i.PayWith }
func (i EducationIntent) Amount() decimal.Decimal { return i.PurchaseValue }

// Validate ensures the education intent adheres to channel rules
func (i EducationIntent) Validate() error {
	if err := validateCommon(i.PurchaseValue, i.PayWith); err != nil {
		return err
	}
	if i.ProfileID == "" {
		return errors.New("education intent requires a profile ID")
	}
	if i.ExamCode == "" {
		return errors.New("education intent requires an exam code")
	}
	if i.Quantity < 1 {
		return errors.New("education intent quantity must be at least 1")
	}
	return nil
}

func (i EducationIntent) Fields() map[string]string {
	return map[string]string{
		"profile_id":     i.ProfileID,
		"variation_code": i.ExamCode,
		"quantity":       strconv.Itoa(i.Quantity),
	}
}

// TVIntent represents a TV subscription renewal request
type TVIntent struct {
	SmartcardNumber string
	ProviderCode    string // biller code of the TV provider
	BouquetCode     string // variation code of the selected bouquet
	Phone           string
	PurchaseValue   decimal.Decimal
	PayWith         PaymentMethod
}

func (i TVIntent) Channel() Channel        { return ChannelTV }
func (i TVIntent) Method() PaymentMethod   { return i.PayWith }
func (i TVIntent) Amount() decimal.Decimal { return i.PurchaseValue }

// Validate ensures the TV intent adheres to channel rules
func (i TVIntent) Validate() error {
	if err := validateCommon(i.PurchaseValue, i.PayWith); err != nil {
		return err
	}
	if i.SmartcardNumber == "" {
		return errors.New("tv intent requires a smartcard number")
	}
	if i.ProviderCode == "" {
		return errors.New("tv intent requires a provider code")
	}
	if i.BouquetCode == "" {
		return errors.New("tv intent requires a bouquet code")
	}
	return nil
}

func (i TVIntent) Fields() map[string]string {
	return map[string]string{
		"billers_code":   i.SmartcardNumber,
		"plan_id":        i.ProviderCode,
		"variation_code": i.BouquetCode,
		"phone":          i.Phone,
	}
}

// TransferIntent represents a wallet-to-wallet transfer request
type TransferIntent struct {
	RecipientID   string
	Narration     string
	PurchaseValue decimal.Decimal
	PayWith       PaymentMethod
}

func (i TransferIntent) Channel() Channel        { return ChannelTransfer }
func (i TransferIntent) Method() PaymentMethod   { return i.PayWith }
func (i TransferIntent) Amount() decimal.Decimal { return i.PurchaseValue }

// Validate ensures the transfer intent adheres to channel rules
func (i TransferIntent) Validate() error {
	if err := validateCommon(i.PurchaseValue, i.PayWith); err != nil {
		return err
	}
	if i.RecipientID == "" {
		return errors.New("transfer intent requires a recipient ID")
	}
	return nil
}

func (i TransferIntent) Fields() map[string]string {
	return map[string]string{
		"recipient_id": i.RecipientID,
		"narration":    i.Narration,
	}
}

// validateCommon checks the rules shared by every channel
func validateCommon(amount decimal.Decimal, method PaymentMethod) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return errors.New("intent amount must be positive")
	}
	if method != PaymentMethodWallet && method != PaymentMethodCashback {
		return errors.New("payment method must be wallet or cashback")
	}
	return nil
}

// validPhone reports whether s is an 11-digit local phone number
func validPhone(s string) bool {
	if len(s) != 11 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
