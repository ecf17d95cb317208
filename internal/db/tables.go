package db

import "os"

func UsersTableName() string {
	return os.Getenv("USERS_TABLE")
}

func ChatsTableName() string {
	return os.Getenv("CHATS_TABLE")
}

func AnswerCacheTableName() string {
	return os.Getenv("ANSWER_CACHE_TABLE")
}
