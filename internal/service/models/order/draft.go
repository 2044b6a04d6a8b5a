package order

// DraftLine is one requested (item, quantity) selection.
type DraftLine struct {
	MenuItemID int64
	Quantity   int
}

// Draft is the explicit cart handed to the order builder. It replaces any
// ambient session state: everything needed to price and place the order is
// carried here.
type Draft struct {
	EmployeeID          int64
	FullName            string
	Email               string
	PhoneNumber         string
	OfficeNumber        string
	SpecialInstructions string
	Lines               []DraftLine
}
