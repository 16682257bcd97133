package opsdiag

// EnumerateOptionShapes returns a copy of the shapes src knows about. A nil
// source yields an empty slice.
func EnumerateOptionShapes(src ShapeSource) []Shape {
	if src == nil {
		return []Shape{}
	}
	shapes := src.OptionShapes()
	out := make([]Shape, len(shapes))
	copy(out, shapes)
	return out
}

// EnumerateServiceRegistrations returns a copy of the registrations src
// knows about, in registration order.
func EnumerateServiceRegistrations(src ServiceSource) []ServiceRegistration {
	if src == nil {
		return []ServiceRegistration{}
	}
	regs := src.ServiceRegistrations()
	out := make([]ServiceRegistration, len(regs))
	copy(out, regs)
	return out
}
