package redis

const (
	// appendMessageScript appends a message once per ID.
	//
	// Keys:
	//   KEYS[1] - id set key
	//   KEYS[2] - message list key
	//
	// Args:
	//   ARGV[1] - message id
	//   ARGV[2] - encoded message
	//
	// Returns:
	//   1 when appended, 0 when the id was already stored
	appendMessageScript = `
if redis.call('SADD', KEYS[1], ARGV[1]) == 1 then
	redis.call('RPUSH', KEYS[2], ARGV[2])
	return 1
end
return 0
`

	// upsertCountersScript raises each counter field to the given value
	// and never lowers it.
	//
	// Keys:
	//   KEYS[1] - counters hash key
	//
	// Args:
	//   ARGV[1..4] - total_message_count, user_turn_count, last_feedback_at, last_exercise_at
	//   ARGV[5]    - updated_ts
	upsertCountersScript = `
local fields = {'total_message_count', 'user_turn_count', 'last_feedback_at', 'last_exercise_at'}
for i, field in ipairs(fields) do
	local current = tonumber(redis.call('HGET', KEYS[1], field) or '0')
	local value = tonumber(ARGV[i])
	if value > current then
		redis.call('HSET', KEYS[1], field, ARGV[i])
	end
end
redis.call('HSET', KEYS[1], 'updated_ts', ARGV[5])
return 1
`
)
