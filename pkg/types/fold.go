package types

// Fold evaluates the operands of a sum declared as k. Integer operands are
// added into an accumulator that starts at zero; register references other
// than the zero register are returned, in order, for run-time addition.
func Fold(k Kind, operands []Operand) (Operand, []string, error) {
	acc := Zero(k)
	var deferred []string
	for _, op := range operands {
		switch {
		case op.IsZeroRegister():
		case op.IsRegister():
			deferred = append(deferred, op.name)
		default:
			next, err := acc.Add(op)
			if err != nil {
				return Operand{}, nil, err
			}
			acc = next
		}
	}
	return acc, deferred, nil
}

// DeferredCount is the number of operands Fold would defer.
func DeferredCount(operands []Operand) int {
	n := 0
	for _, op := range operands {
		if op.IsRegister() && !op.IsZeroRegister() {
			n++
		}
	}
	return n
}
