package discussion

// Consensus reports whether the reviewer panel unanimously approved in the
// given set of messages (normally one round's worth). Only review-type
// messages count. An empty review set is never consensus: if every reviewer
// call failed silently, the round must not succeed by vacuous truth.
func Consensus(msgs []Message) bool {
	reviews := 0
	for _, m := range msgs {
		if !m.IsReview() {
			continue
		}
		reviews++
		if m.Approval != Approved {
			return false
		}
	}
	return reviews > 0
}

// GroupByRound buckets messages by their round tag.
func GroupByRound(msgs []Message) map[int][]Message {
	byRound := make(map[int][]Message)
	for _, m := range msgs {
		byRound[m.Round] = append(byRound[m.Round], m)
	}
	return byRound
}

// MaxRound returns the highest round tag seen across msgs, or 0 if none.
func MaxRound(msgs []Message) int {
	max := 0
	for _, m := range msgs {
		if m.Round > max {
			max = m.Round
		}
	}
	return max
}
