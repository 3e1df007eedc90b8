package resolver

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
)

// Near-duplicate detection: tweets within this cosine distance of each
// other are considered copies of the same report.
const duplicateDistanceThreshold = 0.2

// largeCorpus switches the document-frequency floor from the small-sample
// default to log(N).
const (
	largeCorpus       = 1000
	defaultMinDocFreq = 2
)

// dedupTokenPattern mirrors the tweet-aware vectorizer tokenization:
// hyphenated compounds, numbers, hashtag/mention words, emoji, and short
// punctuation runs each count as one term.
var dedupTokenPattern = regexp.MustCompile(`[\p{L}\p{N}_]+(?:-[\p{L}\p{N}_]+)+` +
	`|[-+]?\p{N}+[.,]?\p{N}+` +
	`|[#@]?[\p{L}\p{N}_]+` +
	`|[\x{1F300}-\x{1F6FF}\x{2600}-\x{27BF}]` +
	`|[.:()\[\],;?!*]{2,4}`)

// dedupTweets removes near-duplicate tweets: exact text copies collapse to
// the earliest-dated one, then TF-IDF cosine clustering collapses close
// paraphrases, again keeping the earliest per cluster. Tweets outside any
// cluster survive.
func dedupTweets(tweets []tweetRef) []tweetRef {
	if len(tweets) < 2 {
		return tweets
	}

	unique := collapseExactTexts(tweets)
	if len(unique) < 2 {
		return unique
	}

	vectors := vectorize(unique)
	clusters := clusterByDistance(vectors)
	if len(clusters) == 0 {
		return unique
	}

	inCluster := make(map[int]struct{})
	for _, cluster := range clusters {
		for _, idx := range cluster {
			inCluster[idx] = struct{}{}
		}
	}

	var kept []tweetRef
	for i, tweet := range unique {
		if _, ok := inCluster[i]; !ok {
			kept = append(kept, tweet)
		}
	}
	for _, cluster := range clusters {
		earliest := cluster[0]
		for _, idx := range cluster[1:] {
			if unique[idx].Date.Before(unique[earliest].Date) {
				earliest = idx
			}
		}
		kept = append(kept, unique[earliest])
	}
	return kept
}

// collapseExactTexts keeps the earliest tweet per exact text, preserving
// input order of the survivors.
func collapseExactTexts(tweets []tweetRef) []tweetRef {
	earliest := make(map[string]int)
	for i, tweet := range tweets {
		if j, ok := earliest[tweet.Text]; !ok || tweet.Date.Before(tweets[j].Date) {
			earliest[tweet.Text] = i
		}
	}
	var kept []tweetRef
	for i, tweet := range tweets {
		if earliest[tweet.Text] == i {
			kept = append(kept, tweet)
		}
	}
	return kept
}

// vectorize builds L2-normalized sub-linear TF-IDF vectors over word
// 1-2-grams of the tweet texts.
func vectorize(tweets []tweetRef) []map[string]float64 {
	n := len(tweets)

	minDocFreq := defaultMinDocFreq
	if n > largeCorpus {
		minDocFreq = int(math.Log(float64(n)))
	}

	termCounts := make([]map[string]int, n)
	docFreq := make(map[string]int)
	for i, tweet := range tweets {
		tokens := dedupTokenPattern.FindAllString(tweet.Text, -1)
		counts := make(map[string]int)
		for _, tok := range tokens {
			counts[tok]++
		}
		for j := 0; j+2 <= len(tokens); j++ {
			counts[tokens[j]+" "+tokens[j+1]]++
		}
		termCounts[i] = counts
		for term := range counts {
			docFreq[term]++
		}
	}

	vectors := make([]map[string]float64, n)
	for i, counts := range termCounts {
		vec := make(map[string]float64)
		var norm float64
		for term, count := range counts {
			if docFreq[term] < minDocFreq {
				continue
			}
			// Sub-linear TF with smoothed IDF.
			tf := 1 + math.Log(float64(count))
			idf := math.Log(float64(1+n)/float64(1+docFreq[term])) + 1
			w := tf * idf
			vec[term] = w
			norm += w * w
		}
		if norm > 0 {
			norm = math.Sqrt(norm)
			for term := range vec {
				vec[term] /= norm
			}
		}
		vectors[i] = vec
	}
	return vectors
}

// clusterByDistance groups vectors with pairwise cosine distance below the
// threshold. Groups are seeded per row, deduplicated, and accepted largest
// first while disjoint from already accepted ones.
func clusterByDistance(vectors []map[string]float64) [][]int {
	n := len(vectors)
	groups := make(map[string][]int)
	for i := 0; i < n; i++ {
		var members []int
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			if cosineDistance(vectors[i], vectors[j]) < duplicateDistanceThreshold {
				if members == nil {
					members = []int{i}
				}
				members = append(members, j)
			}
		}
		if members != nil {
			sort.Ints(members)
			groups[intsKey(members)] = members
		}
	}
	if len(groups) == 0 {
		return nil
	}

	clusters := make([][]int, 0, len(groups))
	for _, members := range groups {
		clusters = append(clusters, members)
	}
	sort.Slice(clusters, func(i, j int) bool {
		if len(clusters[i]) != len(clusters[j]) {
			return len(clusters[i]) > len(clusters[j])
		}
		return intsKey(clusters[i]) < intsKey(clusters[j])
	})

	taken := make(map[int]struct{})
	var accepted [][]int
	for _, cluster := range clusters {
		disjoint := true
		for _, idx := range cluster {
			if _, ok := taken[idx]; ok {
				disjoint = false
				break
			}
		}
		if !disjoint {
			continue
		}
		for _, idx := range cluster {
			taken[idx] = struct{}{}
		}
		accepted = append(accepted, cluster)
	}
	return accepted
}

func cosineDistance(a, b map[string]float64) float64 {
	if len(b) < len(a) {
		a, b = b, a
	}
	var dot float64
	for term, w := range a {
		dot += w * b[term]
	}
	return 1 - dot
}

func intsKey(ints []int) string {
	parts := make([]string, len(ints))
	for i, v := range ints {
		parts[i] = fmt.Sprintf("%012d", v)
	}
	return strings.Join(parts, ",")
}
