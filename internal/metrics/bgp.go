package metrics

import (
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	bgpPeerUp = gauge("fortigate_bgp_peer_up", "BGP peer established state")

	bgpLabels = []string{"device", "peer"}
)

type bgpPeer struct {
	id    string
	state string
}

func transformBGP(device string, results gjson.Result) ([]Sample, error) {
	peers, err := bgpPeers(results)
	if err != nil {
		return nil, err
	}

	samples := make([]Sample, 0, len(peers))
	for _, p := range peers {
		up := 0.0
		if strings.ToLower(p.state) == "established" {
			up = 1
		}
		samples = append(samples, bgpPeerUp.sample(bgpLabels, []string{device, p.id}, up))
	}
	return samples, nil
}

// bgpPeers extracts peer records from the shapes firmware versions report:
// results as a list of peers, or results.peers as a list or as a mapping
// keyed by peer address.
func bgpPeers(results gjson.Result) ([]bgpPeer, error) {
	switch kind := kindOf(results); kind {
	case kindList:
		return peerRecords(results, false)
	case kindObject:
		peers := results.Get("peers")
		switch kind := kindOf(peers); kind {
		case kindList:
			return peerRecords(peers, false)
		case kindObject:
			return peerRecords(peers, true)
		case kindAbsent:
			return nil, nil
		default:
			if peers.Type == gjson.Null {
				return nil, nil
			}
			return nil, fmt.Errorf("peers is %s, want list or object", kind)
		}
	default:
		return nil, fmt.Errorf("results is %s, want list or object", kind)
	}
}

// peerRecords walks a peer container. When keyed, the member name is the
// identity of last resort.
func peerRecords(container gjson.Result, keyed bool) ([]bgpPeer, error) {
	var peers []bgpPeer
	var err error
	container.ForEach(func(key, rec gjson.Result) bool {
		if kind := kindOf(rec); kind != kindObject {
			err = fmt.Errorf("peer entry is %s, want object", kind)
			return false
		}
		fallback := "unknown"
		if keyed && key.String() != "" {
			fallback = key.String()
		}
		peers = append(peers, bgpPeer{
			id:    peerIdentity(rec, fallback),
			state: rec.Get("state").String(),
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	return peers, nil
}

func peerIdentity(rec gjson.Result, fallback string) string {
	if id := rec.Get("neighbor").String(); id != "" {
		return id
	}
	if id := rec.Get("ip").String(); id != "" {
		return id
	}
	return fallback
}
