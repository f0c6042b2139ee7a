package contract

import "errors"

type CreateContractDTO struct {
	MerchantName string `json:"merchantName" binding:"required"`
	AmountCents  int64  `json:"amountCents"  binding:"required,gt=0"`
	Currency     string `json:"currency"     binding:"omitempty,len=3"`
	TermMonths   int    `json:"termMonths"   binding:"required,gt=0,lte=120"`
}

var (
	errContractNotFound     = errors.New("contract not found")
	errContractNotDraft     = errors.New("contract is not in draft status")
	errContractNotSubmitted = errors.New("contract is not in submitted status")
	errIdentityNotVerified  = errors.New("identity verification not approved")
)
