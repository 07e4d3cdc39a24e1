package auth

import (
	"errors"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

// DefaultPhoneRegion is the region used to parse numbers without a country prefix.
const DefaultPhoneRegion = "AO"

// EmailRule checks the address format only, without DNS lookups.
var EmailRule = validation.Match(regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)).Error("must be a valid email address")

func requireUUID(value any) error {
	id, _ := value.(uuid.UUID)
	if id == uuid.Nil {
		return errors.New("cannot be blank")
	}
	return nil
}

// ValidatePhone returns a rule accepting numbers that are possible in region.
func ValidatePhone(region string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return nil
		}
		if _, err := NormalizePhone(s, region); err != nil {
			return err
		}
		return nil
	}
}

// NormalizePhone parses a phone number and formats it as E.164.
func NormalizePhone(phone, region string) (string, error) {
	if region == "" {
		region = DefaultPhoneRegion
	}
	num, err := phonenumbers.Parse(strings.TrimSpace(phone), region)
	if err != nil {
		return "", errors.New("must be a valid phone number")
	}
	if !phonenumbers.IsPossibleNumber(num) {
		return "", errors.New("must be a valid phone number")
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

func validationFields(err error) map[string]string {
	fields := map[string]string{}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			if ferr != nil {
				fields[field] = ferr.Error()
			}
		}
		return fields
	}
	if err != nil {
		fields["payload"] = err.Error()
	}
	return fields
}
