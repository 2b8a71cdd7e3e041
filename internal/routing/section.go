package routing

// Sections flatten ports and their mixers into one 1-based list. With a
// mixer subsystem, section 2k-1 is port k and section 2k is the mixer paired
// with port k. Without one, section k is port k.

// ToSection returns the section of port, or of the mixer paired with it.
// ok is false for port < 1 or a mixer section on a device without mixers.
func ToSection(port int, mixer, hasMixer bool) (section int, ok bool) {
	if port < 1 {
		return 0, false
	}
	if !hasMixer {
		if mixer {
			return 0, false
		}
		return port, true
	}
	if mixer {
		return 2 * port, true
	}
	return 2*port - 1, true
}

// FromSection is the inverse of ToSection. ok is false for section < 1.
func FromSection(section int, hasMixer bool) (port int, mixer bool, ok bool) {
	if section < 1 {
		return 0, false, false
	}
	if !hasMixer {
		return section, false, true
	}
	return (section + 1) / 2, section%2 == 0, true
}
