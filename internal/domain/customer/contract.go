package customer

import (
	"encoding/json"
	"fmt"
	"strings"
)

type ContractType string

const (
	ContractFull      ContractType = "full"
	ContractLimited   ContractType = "limited"
	ContractPreFilter ContractType = "prefilter"
)

var contractTypes = []ContractType{ContractFull, ContractLimited, ContractPreFilter}

var contractAliases = map[string]ContractType{
	"full":          ContractFull,
	"amc":           ContractFull,
	"full contract": ContractFull,
	"limited":       ContractLimited,
	"prefilter":     ContractPreFilter,
	"pre-filter":    ContractPreFilter,
	"pre filter":    ContractPreFilter,
	"pre_filter":    ContractPreFilter,
}

var shortLabels = map[ContractType]string{
	ContractFull:      "Full Contract",
	ContractLimited:   "Limited",
	ContractPreFilter: "Pre Filter",
}

var longLabels = map[ContractType]string{
	ContractFull:      "Full Contract (1 Year)",
	ContractLimited:   "Service Contract (No Membrane & Pump)",
	ContractPreFilter: "Pre Filter Service (1 Year)",
}

// ParseContractType accepts the canonical values and the AMC/Limited/PreFilter
// spellings used by older records.
func ParseContractType(s string) (ContractType, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return "", requiredField("contractType")
	}
	ct, ok := contractAliases[key]
	if !ok {
		return "", invalidField("contractType", fmt.Sprintf("unknown contract type %q", s))
	}
	return ct, nil
}

func ContractTypes() []ContractType {
	out := make([]ContractType, len(contractTypes))
	copy(out, contractTypes)
	return out
}

func (t ContractType) Valid() bool {
	_, ok := shortLabels[t]
	return ok
}

func (t ContractType) Label() string {
	return shortLabels[t]
}

func (t ContractType) LongLabel() string {
	return longLabels[t]
}

func (t ContractType) String() string {
	return string(t)
}

func (t *ContractType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	ct, err := ParseContractType(s)
	if err != nil {
		return err
	}
	*t = ct
	return nil
}
