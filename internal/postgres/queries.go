package postgres

const userColumns = `u.id, u.username, u.name, u.image, u.role, u.is_active, u.device_token`

const (
	queryUserByID = `
SELECT ` + userColumns + `
FROM users u
WHERE u.id = $1`

	queryUserByUsername = `
SELECT ` + userColumns + `
FROM users u
WHERE u.username = $1`
)

const (
	queryDealerProfileByUser = `
SELECT dp.id, dp.user_id, COALESCE(dp.city_id, 0)
FROM dealer_profiles dp
WHERE dp.user_id = $1`

	queryAssignedManagers = `
SELECT ` + userColumns + `
FROM dealer_managers dm
JOIN users u ON u.id = dm.manager_id
WHERE dm.dealer_profile_id = $1
ORDER BY dm.id`

	queryManagerCity = `
SELECT mp.city_id
FROM manager_profiles mp
WHERE mp.user_id = $1`
)

const chatColumns = `c.id, c.dealer_id, d.username, d.device_token, dp.city_id, c.created_at`

const (
	queryChatByID = `
SELECT ` + chatColumns + `
FROM chats c
JOIN users d ON d.id = c.dealer_id
LEFT JOIN dealer_profiles dp ON dp.user_id = c.dealer_id
WHERE c.id = $1`

	queryChatByDealer = `
SELECT ` + chatColumns + `
FROM chats c
JOIN users d ON d.id = c.dealer_id
LEFT JOIN dealer_profiles dp ON dp.user_id = c.dealer_id
WHERE c.dealer_id = $1`

	queryEnsureChat = `
INSERT INTO chats (dealer_id)
VALUES ($1)
ON CONFLICT (dealer_id) DO NOTHING`
)

const (
	queryInsertMessage = `
INSERT INTO messages (chat_id, sender_id, text)
VALUES ($1, $2, $3)
RETURNING id, chat_id, sender_id, text, is_read, created_at`

	queryInsertAttachment = `
INSERT INTO message_attachments (message_id, file)
VALUES ($1, $2)`

	queryMessageByID = `
SELECT id, chat_id, sender_id, text, is_read, created_at
FROM messages
WHERE id = $1`

	queryMarkRead = `
UPDATE messages
SET is_read = TRUE
WHERE id = $1
RETURNING id, chat_id, sender_id, text, is_read, created_at`
)

// messageViewSelect — сообщение с отправителем и вложениями одной строкой.
const messageViewSelect = `
SELECT m.id,
       m.chat_id,
       s.id,
       s.name,
       s.image,
       m.text,
       m.is_read,
       m.created_at,
       (m.sender_id = c.dealer_id) AS is_dealer_message,
       COALESCE((SELECT json_agg(json_build_object('id', a.id, 'file', a.file) ORDER BY a.id)
                 FROM message_attachments a
                 WHERE a.message_id = m.id), '[]'::json)::text AS attachments
FROM messages m
JOIN users s ON s.id = m.sender_id
JOIN chats c ON c.id = m.chat_id`

const (
	queryMessageView = messageViewSelect + `
WHERE m.id = $1`

	queryChatMessages = messageViewSelect + `
WHERE m.chat_id = $1
  AND ($2::text = '' OR s.name ILIKE '%' || $2::text || '%' ESCAPE '\')
ORDER BY m.created_at DESC, m.id DESC
LIMIT $3 OFFSET $4`
)

// lastMessageSubquery: сообщения чата с агрегированными вложениями,
// порядок id ASC, created_at DESC, берётся первая строка.
// Порядок исторический, клиенты на него завязаны; не менять.
const lastMessageSubquery = `
(SELECT json_build_object(
            'id', m.id,
            'sender', m.sender_id,
            'chat_id', m.chat_id,
            'text', m.text,
            'is_read', m.is_read,
            'created_at', m.created_at,
            'attachments', COALESCE(
                json_agg(json_build_object('id', a.id, 'file', a.file) ORDER BY a.id)
                    FILTER (WHERE a.id IS NOT NULL),
                '[]'::json)
        )::text
 FROM messages m
 LEFT JOIN message_attachments a ON a.message_id = m.id
 WHERE m.chat_id = c.id
 GROUP BY m.id
 ORDER BY m.id ASC, m.created_at DESC
 LIMIT 1)`

const (
	queryDealerChats = `
SELECT c.id,
       'Manager' AS name,
       NULL::text AS image,
       (SELECT COUNT(*)
        FROM messages m
        WHERE m.chat_id = c.id
          AND m.sender_id <> c.dealer_id
          AND NOT m.is_read) AS new_messages_count,
       ` + lastMessageSubquery + ` AS last_message
FROM chats c
WHERE c.dealer_id = $1
LIMIT 1`

	queryManagerChats = `
SELECT c.id,
       d.name,
       d.image,
       (SELECT COUNT(*)
        FROM messages m
        JOIN users s ON s.id = m.sender_id
        WHERE m.chat_id = c.id
          AND s.role <> 'manager'
          AND NOT m.is_read) AS new_messages_count,
       ` + lastMessageSubquery + ` AS last_message,
       (SELECT COUNT(*) FROM messages m WHERE m.chat_id = c.id) AS total_count,
       (SELECT MAX(m.created_at) FROM messages m WHERE m.chat_id = c.id) AS last_message_time
FROM chats c
JOIN users d ON d.id = c.dealer_id
JOIN dealer_profiles dp ON dp.user_id = d.id
WHERE dp.city_id = $1
  AND ($2::text = '' OR d.name ILIKE '%' || $2::text || '%' ESCAPE '\')
ORDER BY new_messages_count DESC,
         last_message_time DESC NULLS LAST,
         total_count DESC,
         c.id ASC
LIMIT $3 OFFSET $4`
)
