package postgres

// toggleNickname flips nickname's membership in the reactionType bucket.
// A bucket key exists only while its set is non-empty; removing the last
// nickname deletes the key.
func toggleNickname(reactions map[string][]string, reactionType, nickname string) {
	bucket := reactions[reactionType]

	for i, n := range bucket {
		if n == nickname {
			bucket = append(bucket[:i], bucket[i+1:]...)
			if len(bucket) == 0 {
				delete(reactions, reactionType)
			} else {
				reactions[reactionType] = bucket
			}
			return
		}
	}

	reactions[reactionType] = append(bucket, nickname)
}
