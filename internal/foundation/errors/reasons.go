package errors

// Reason is the machine-readable cause of a rejected container operation.
// Transport collaborators map it to a user-facing message.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonInvalidSlot        Reason = "invalid_slot"
	ReasonInvalidPermutation Reason = "invalid_permutation"
	ReasonInvalidContainer   Reason = "invalid_container"
	ReasonNotAContainer      Reason = "not_a_container"
	ReasonWorldNotFound      Reason = "world_not_found"
	ReasonOwnerNotFound      Reason = "owner_not_found"
	ReasonContainerFull      Reason = "container_full"
	ReasonInventoryFull      Reason = "inventory_full"
	ReasonSlotEmpty          Reason = "slot_empty"
	ReasonSlotOccupied       Reason = "slot_occupied"
	ReasonWrongKind          Reason = "wrong_kind"
	ReasonOwnerOffline       Reason = "owner_offline"
)

// reasonCategory is the default category for each reason.
var reasonCategory = map[Reason]ErrorCategory{
	ReasonInvalidSlot:        CategoryValidation,
	ReasonInvalidPermutation: CategoryValidation,
	ReasonInvalidContainer:   CategoryValidation,
	ReasonNotAContainer:      CategoryNotFound,
	ReasonWorldNotFound:      CategoryNotFound,
	ReasonOwnerNotFound:      CategoryNotFound,
	ReasonContainerFull:      CategoryState,
	ReasonInventoryFull:      CategoryState,
	ReasonSlotEmpty:          CategoryState,
	ReasonSlotOccupied:       CategoryState,
	ReasonWrongKind:          CategoryState,
	ReasonOwnerOffline:       CategoryState,
}

// Rejected creates a builder for an operation rejected with reason.
func Rejected(reason Reason, message string) *ErrorBuilder {
	category, ok := reasonCategory[reason]
	if !ok {
		category = CategoryInternal
	}
	return NewError(category, message).WithReason(reason).UserAction()
}

// GetReason extracts the reason from an error, or returns ReasonNone.
func GetReason(err error) Reason {
	if classified, ok := AsClassified(err); ok {
		return classified.Reason()
	}
	return ReasonNone
}

// HasReason checks if the error chain carries reason.
func HasReason(err error, reason Reason) bool {
	return reason != ReasonNone && GetReason(err) == reason
}
