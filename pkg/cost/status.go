package cost

type MaterialStatus string

const (
	MaterialPending   MaterialStatus = "pending"
	MaterialApproved  MaterialStatus = "approved"
	MaterialOrdered   MaterialStatus = "ordered"
	MaterialReceived  MaterialStatus = "received"
	MaterialRejected  MaterialStatus = "rejected"
	MaterialCancelled MaterialStatus = "cancelled"
)

type ExpenseStatus string

const (
	ExpensePending  ExpenseStatus = "PENDING"
	ExpenseApproved ExpenseStatus = "APPROVED"
	ExpenseRejected ExpenseStatus = "REJECTED"
	ExpensePaid     ExpenseStatus = "PAID"
)

type LabourStatus string

const (
	LabourPending  LabourStatus = "pending"
	LabourApproved LabourStatus = "approved"
	LabourRejected LabourStatus = "rejected"
	LabourPaid     LabourStatus = "paid"
)

type EquipmentStatus string

const (
	EquipmentRequested EquipmentStatus = "requested"
	EquipmentAssigned  EquipmentStatus = "assigned"
	EquipmentInUse     EquipmentStatus = "in_use"
	EquipmentReturned  EquipmentStatus = "returned"
	EquipmentCancelled EquipmentStatus = "cancelled"
)

type SubcontractorStatus string

const (
	SubcontractorPending    SubcontractorStatus = "pending"
	SubcontractorActive     SubcontractorStatus = "active"
	SubcontractorCompleted  SubcontractorStatus = "completed"
	SubcontractorTerminated SubcontractorStatus = "terminated"
)

type ProfessionalServiceStatus string

const (
	ProfessionalServicePending   ProfessionalServiceStatus = "pending"
	ProfessionalServiceActive    ProfessionalServiceStatus = "active"
	ProfessionalServiceCompleted ProfessionalServiceStatus = "completed"
	ProfessionalServiceCancelled ProfessionalServiceStatus = "cancelled"
)

// Approved sets. Fixed-size arrays so the sets cannot be appended to at runtime.
var (
	approvedMaterial            = [...]MaterialStatus{MaterialApproved, MaterialReceived}
	approvedExpense             = [...]ExpenseStatus{ExpenseApproved, ExpensePaid}
	approvedLabour              = [...]LabourStatus{LabourApproved, LabourPaid}
	approvedEquipment           = [...]EquipmentStatus{EquipmentAssigned, EquipmentInUse, EquipmentReturned}
	approvedSubcontractor       = [...]SubcontractorStatus{SubcontractorActive, SubcontractorCompleted}
	approvedProfessionalService = [...]ProfessionalServiceStatus{ProfessionalServiceActive, ProfessionalServiceCompleted}
)

func (s MaterialStatus) Approved() bool            { return in(approvedMaterial[:], s) }
func (s ExpenseStatus) Approved() bool             { return in(approvedExpense[:], s) }
func (s LabourStatus) Approved() bool              { return in(approvedLabour[:], s) }
func (s EquipmentStatus) Approved() bool           { return in(approvedEquipment[:], s) }
func (s SubcontractorStatus) Approved() bool       { return in(approvedSubcontractor[:], s) }
func (s ProfessionalServiceStatus) Approved() bool { return in(approvedProfessionalService[:], s) }

// IsApproved reports whether status is in the approved set of the category.
// Unknown categories approve nothing.
func IsApproved(category Category, status string) bool {
	switch category {
	case Materials:
		return MaterialStatus(status).Approved()
	case Expenses:
		return ExpenseStatus(status).Approved()
	case Labour:
		return LabourStatus(status).Approved()
	case Equipment:
		return EquipmentStatus(status).Approved()
	case Subcontractors:
		return SubcontractorStatus(status).Approved()
	case ProfessionalServices:
		return ProfessionalServiceStatus(status).Approved()
	}
	return false
}

// ApprovedStatuses returns the approved set of the category as query parameters.
func ApprovedStatuses(category Category) []string {
	switch category {
	case Materials:
		return strs(approvedMaterial[:])
	case Expenses:
		return strs(approvedExpense[:])
	case Labour:
		return strs(approvedLabour[:])
	case Equipment:
		return strs(approvedEquipment[:])
	case Subcontractors:
		return strs(approvedSubcontractor[:])
	case ProfessionalServices:
		return strs(approvedProfessionalService[:])
	}
	return nil
}

func in[S ~string](set []S, s S) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func strs[S ~string](set []S) []string {
	out := make([]string, len(set))
	for i, v := range set {
		out[i] = string(v)
	}
	return out
}
