package backend

import (
	"context"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/primsh/prim.sh-sub000/pkg/apierror"
	"github.com/primsh/prim.sh-sub000/pkg/db"
	"github.com/primsh/prim.sh-sub000/pkg/model"
)

// Verify compares the zone's advertised state against live DNS. The
// nameserver check asks the configured resolver whether delegation has
// propagated; record checks go straight to the zone's own nameservers, so
// they answer "does the zone itself serve the expected data" independent of
// delegation and caching. Every query is timeout-bounded and every failure is
// a per-check outcome; nothing here aborts the batch.
func (b *backend) Verify(ctx context.Context, zoneID, caller string) (model.VerifyResult, *apierror.Error) {
	zone, aerr := b.ownedZone(zoneID, caller)
	if aerr != nil {
		return model.VerifyResult{}, aerr
	}

	records, err := b.db.ListRecords(zone.ID)
	if err != nil {
		return model.VerifyResult{}, apierror.Internal("listing records: %v", err)
	}

	q := b.newQuerier()
	expected := zone.NameserverList()

	var wg sync.WaitGroup
	var nsCheck model.NameserverCheck
	checks := make([]model.RecordCheck, len(records))

	wg.Add(2)
	go func() {
		defer wg.Done()
		nsCheck = checkDelegation(ctx, q, zone.Domain, expected)
	}()
	go func() {
		defer wg.Done()

		// Authoritative server addresses come first; without them no record
		// check can say anything meaningful.
		servers := resolveNameserverAddrs(ctx, q, expected)
		if len(servers) == 0 {
			for i, rec := range records {
				checks[i] = model.RecordCheck{
					RecordID: rec.ID,
					Type:     rec.Type,
					Name:     rec.Name,
					Expected: rec.Content,
					Reason:   model.ReasonNsUnresolvable,
				}
			}
			return
		}

		var rwg sync.WaitGroup
		for i := range records {
			rwg.Add(1)
			go func(i int) {
				defer rwg.Done()
				checks[i] = checkRecord(ctx, q, servers, records[i])
			}(i)
		}
		rwg.Wait()
	}()
	wg.Wait()

	allPropagated := nsCheck.Propagated
	for _, check := range checks {
		allPropagated = allPropagated && check.Propagated
	}

	// The one place zone status is refreshed outside an explicit activation
	// request.
	if zone.Status == model.ZoneStatusPending {
		zone = b.refreshZoneStatus(ctx, zone)
	}

	return model.VerifyResult{
		ZoneID:        zone.ID,
		Domain:        zone.Domain,
		ZoneStatus:    zone.Status,
		AllPropagated: allPropagated,
		Nameservers:   nsCheck,
		Records:       checks,
	}, nil
}

func checkDelegation(ctx context.Context, q Querier, domain string, expected []string) model.NameserverCheck {
	check := model.NameserverCheck{Expected: normalizeNameSet(expected)}

	actual, err := q.LookupNS(ctx, domain)
	if err != nil {
		check.Reason = reasonOf(err)
		return check
	}

	check.Actual = normalizeNameSet(actual)
	if setEqual(check.Expected, check.Actual) {
		check.Propagated = true
	} else {
		check.Reason = model.ReasonMismatch
	}
	return check
}

func resolveNameserverAddrs(ctx context.Context, q Querier, nameservers []string) []string {
	var servers []string
	for _, host := range nameservers {
		ips, err := q.LookupHostIPs(ctx, normalizeName(host))
		if err != nil {
			continue
		}
		for _, ip := range ips {
			servers = append(servers, net.JoinHostPort(ip, "53"))
		}
	}
	return servers
}

// checkRecord queries one record against the authoritative servers, trying
// the next server only on transport failures. Each query carries its own
// timeout; one record's outcome never touches another's.
func checkRecord(ctx context.Context, q Querier, servers []string, rec db.Record) model.RecordCheck {
	check := model.RecordCheck{
		RecordID: rec.ID,
		Type:     rec.Type,
		Name:     rec.Name,
		Expected: rec.Content,
	}

	lastReason := model.ReasonUnreachable
	for _, server := range servers {
		answers, err := q.Query(ctx, server, rec.Name, rec.Type)
		if err != nil {
			reason := reasonOf(err)
			if reason == model.ReasonTimeout || reason == model.ReasonUnreachable {
				lastReason = reason
				continue
			}
			check.Reason = reason
			return check
		}

		check.Actual = answersText(rec.Type, answers)
		if matchAnswers(rec, answers) {
			check.Propagated = true
		} else {
			check.Reason = model.ReasonMismatch
		}
		return check
	}

	check.Reason = lastReason
	return check
}

// matchAnswers decides propagation per record type. The switch is closed over
// the supported types; anything else never matches.
func matchAnswers(rec db.Record, answers []Answer) bool {
	switch rec.Type {
	case model.RecordTypeA, model.RecordTypeAAAA:
		want := net.ParseIP(rec.Content)
		for _, a := range answers {
			if ip := net.ParseIP(a.Content); ip != nil && ip.Equal(want) {
				return true
			}
		}

	case model.RecordTypeCname, model.RecordTypeNs:
		want := normalizeName(rec.Content)
		for _, a := range answers {
			if normalizeName(a.Target) == want {
				return true
			}
		}

	case model.RecordTypeMx:
		// Both exchange and priority must match; a right host at a wrong
		// priority is not propagated.
		if rec.Priority == nil {
			return false
		}
		want := normalizeName(rec.Content)
		for _, a := range answers {
			if normalizeName(a.Target) == want && a.Priority == *rec.Priority {
				return true
			}
		}

	case model.RecordTypeTxt:
		// Multi-chunk answers are concatenated before comparing.
		for _, a := range answers {
			if a.Content == rec.Content {
				return true
			}
		}

	case model.RecordTypeSrv:
		weight, port, target, ok := parseSRVContent(rec.Content)
		if !ok || rec.Priority == nil {
			return false
		}
		for _, a := range answers {
			if a.Weight == weight && a.Port == port &&
				normalizeName(a.Target) == normalizeName(target) &&
				a.Priority == *rec.Priority {
				return true
			}
		}

	case model.RecordTypeCaa:
		// CAA intent matches by substring across issue/issuewild/iodef.
		want := strings.ToLower(rec.Content)
		for _, a := range answers {
			switch a.CAATag {
			case "issue", "issuewild", "iodef":
				value := strings.ToLower(a.CAAValue)
				if value != "" && (strings.Contains(want, value) || strings.Contains(value, want)) {
					return true
				}
			}
		}
	}

	return false
}

// SRV content is stored "weight port target", with priority in its own field.
func parseSRVContent(content string) (weight, port int, target string, ok bool) {
	fields := strings.Fields(content)
	if len(fields) != 3 {
		return 0, 0, "", false
	}
	weight, err := strconv.Atoi(fields[0])
	if err != nil {
		return 0, 0, "", false
	}
	port, err = strconv.Atoi(fields[1])
	if err != nil {
		return 0, 0, "", false
	}
	return weight, port, fields[2], true
}

func answersText(recordType string, answers []Answer) []string {
	out := make([]string, 0, len(answers))
	for _, a := range answers {
		switch recordType {
		case model.RecordTypeA, model.RecordTypeAAAA:
			out = append(out, a.Content)
		case model.RecordTypeCname, model.RecordTypeNs:
			out = append(out, normalizeName(a.Target))
		case model.RecordTypeMx:
			out = append(out, fmt.Sprintf("%d %s", a.Priority, normalizeName(a.Target)))
		case model.RecordTypeTxt:
			out = append(out, a.Content)
		case model.RecordTypeSrv:
			out = append(out, fmt.Sprintf("%d %d %d %s", a.Priority, a.Weight, a.Port, normalizeName(a.Target)))
		case model.RecordTypeCaa:
			out = append(out, fmt.Sprintf("%s %s", a.CAATag, a.CAAValue))
		}
	}
	return out
}

func normalizeName(name string) string {
	return strings.TrimSuffix(strings.ToLower(name), ".")
}

func normalizeNameSet(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, normalizeName(n))
	}
	sort.Strings(out)
	return out
}

func setEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
