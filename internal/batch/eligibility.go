package batch

import "github.com/kursadbilgin/number-console/internal/domain"

// Filter splits the selected numbers of snapshot into the ones the action
// accepts and the ones it does not. Both lists follow snapshot order, and
// selected ids missing from snapshot appear in neither.
func Filter(selected map[string]struct{}, snapshot domain.Snapshot, action domain.ActionKind) (eligible []string, ineligible []string) {
	eligible = make([]string, 0, len(selected))
	ineligible = make([]string, 0)
	if len(selected) == 0 {
		return eligible, ineligible
	}

	seen := make(map[string]struct{}, len(selected))
	for i := range snapshot {
		number := snapshot[i]
		if _, ok := selected[number.ID]; !ok {
			continue
		}
		if _, dup := seen[number.ID]; dup {
			continue
		}
		seen[number.ID] = struct{}{}

		if action.Eligible(number.Status) {
			eligible = append(eligible, number.ID)
		} else {
			ineligible = append(ineligible, number.ID)
		}
	}

	return eligible, ineligible
}
