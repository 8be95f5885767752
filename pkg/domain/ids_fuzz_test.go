package domain

import (
	"testing"
)

// FuzzParseCivilID checks that parsing never panics on arbitrary input and
// that accepted values survive a round trip unchanged.
func FuzzParseCivilID(f *testing.F) {
	f.Add("")
	f.Add("V10100100")
	f.Add(" padded ")
	f.Add("e-12345678")
	f.Add("\x00\xff")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseCivilID(input)
		if err != nil {
			return
		}
		if id.String() != input {
			t.Errorf("round trip changed value: %q -> %q", input, id.String())
		}
		if len(id.String()) > 32 {
			t.Errorf("accepted oversized civil id %q", input)
		}
	})
}

// FuzzParseAgreementID checks that UUID parsing never panics and never
// accepts the nil UUID.
func FuzzParseAgreementID(f *testing.F) {
	f.Add("")
	f.Add("550e8400-e29b-41d4-a716-446655440000")
	f.Add("00000000-0000-0000-0000-000000000000")
	f.Add("not-a-uuid")

	f.Fuzz(func(t *testing.T, input string) {
		id, err := ParseAgreementID(input)
		if err != nil {
			return
		}
		if id.IsNil() {
			t.Errorf("accepted nil agreement id from %q", input)
		}
	})
}
