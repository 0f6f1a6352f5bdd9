package monitor

import "strings"

// CapabilitySet matches service invocations against the configured
// sensitive-capability list. Entries containing a dot match a fully
// qualified domain.service name; bare entries match every service of that
// domain.
type CapabilitySet struct {
	domains map[string]struct{}
	full    map[string]struct{}
}

func BuildCapabilitySet(entries []string) *CapabilitySet {
	set := &CapabilitySet{
		domains: make(map[string]struct{}),
		full:    make(map[string]struct{}),
	}
	for _, entry := range entries {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if strings.Contains(entry, ".") {
			set.full[entry] = struct{}{}
			continue
		}
		set.domains[entry] = struct{}{}
	}
	return set
}

func (s *CapabilitySet) Matches(domain, service string) bool {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return false
	}
	if _, ok := s.domains[domain]; ok {
		return true
	}
	name := domain + "." + strings.ToLower(strings.TrimSpace(service))
	_, ok := s.full[name]
	return ok
}
