package trade

// TransactionType represents the kind of business transaction
type TransactionType string

const (
	TransactionTypeSale           TransactionType = "SALE"
	TransactionTypePurchase       TransactionType = "PURCHASE"
	TransactionTypeSaleReturn     TransactionType = "SALE_RETURN"
	TransactionTypePurchaseReturn TransactionType = "PURCHASE_RETURN"
	TransactionTypeBank           TransactionType = "BANK"
)

// IsValid checks if the type is a known TransactionType
func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeSale, TransactionTypePurchase, TransactionTypeSaleReturn,
		TransactionTypePurchaseReturn, TransactionTypeBank:
		return true
	}
	return false
}

// String returns the string representation of TransactionType
func (t TransactionType) String() string {
	return string(t)
}

// MovesStock reports whether transactions of this type post stock movements.
// Bank transactions only touch the journal.
func (t TransactionType) MovesStock() bool {
	return t != TransactionTypeBank
}

// StockDirection returns +1 for inbound types, -1 for outbound types and 0
// for types that do not move stock. Returns invert the original's sign.
func (t TransactionType) StockDirection() int {
	switch t {
	case TransactionTypePurchase, TransactionTypeSaleReturn:
		return 1
	case TransactionTypeSale, TransactionTypePurchaseReturn:
		return -1
	}
	return 0
}

// TransactionStatus represents the lifecycle status of a business transaction
type TransactionStatus string

const (
	StatusDraft     TransactionStatus = "DRAFT"
	StatusPending   TransactionStatus = "PENDING"
	StatusApproved  TransactionStatus = "APPROVED"
	StatusCompleted TransactionStatus = "COMPLETED"
	StatusCancelled TransactionStatus = "CANCELLED"
	StatusReturned  TransactionStatus = "RETURNED"
)

// IsValid checks if the status is a known TransactionStatus
func (s TransactionStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusApproved, StatusCompleted, StatusCancelled, StatusReturned:
		return true
	}
	return false
}

// String returns the string representation of TransactionStatus
func (s TransactionStatus) String() string {
	return string(s)
}

// transitions is the explicit per-type transition table. A (type, from, to)
// triple absent from the table is an invalid transition; there are no
// implicit fallbacks.
var transitions = map[TransactionType]map[TransactionStatus][]TransactionStatus{
	TransactionTypeSale: {
		StatusDraft:     {StatusPending},
		StatusPending:   {StatusApproved},
		StatusApproved:  {StatusCompleted, StatusCancelled, StatusReturned},
		StatusCompleted: {StatusCancelled, StatusReturned},
	},
	TransactionTypePurchase: {
		StatusDraft:    {StatusPending},
		StatusPending:  {StatusApproved},
		StatusApproved: {StatusCancelled, StatusReturned},
	},
	TransactionTypeSaleReturn: {
		StatusDraft:    {StatusPending},
		StatusPending:  {StatusApproved},
		StatusApproved: {StatusCancelled},
	},
	TransactionTypePurchaseReturn: {
		StatusDraft:    {StatusPending},
		StatusPending:  {StatusApproved},
		StatusApproved: {StatusCancelled},
	},
	TransactionTypeBank: {
		StatusDraft:    {StatusPending},
		StatusPending:  {StatusApproved},
		StatusApproved: {StatusCancelled},
	},
}

// CanTransition checks the transition table for the given type
func CanTransition(txType TransactionType, from, to TransactionStatus) bool {
	table, ok := transitions[txType]
	if !ok {
		return false
	}
	for _, allowed := range table[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// AppliedStatus returns the status whose entry posts stock and journal
// effects. Every type applies on approval; sales may additionally move on
// to COMPLETED without further posting.
func AppliedStatus(txType TransactionType) TransactionStatus {
	return StatusApproved
}

// TriggersApply reports whether entering the target status must post the
// transaction's stock movements and journal entries.
func TriggersApply(txType TransactionType, to TransactionStatus) bool {
	return to == AppliedStatus(txType)
}

// TriggersReverse reports whether entering the target status must reverse
// a previously applied transaction.
func TriggersReverse(from, to TransactionStatus) bool {
	if to != StatusCancelled && to != StatusReturned {
		return false
	}
	return from == StatusApproved || from == StatusCompleted
}
