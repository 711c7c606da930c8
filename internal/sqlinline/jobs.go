package sqlinline

const QEnsureGenerationSchema = `--sql 3e01916e-0467-4a0d-8c8a-d9db63ab4262
create table if not exists generation_jobs (
  id uuid primary key,
  mode text not null,
  status text not null default 'QUEUED',
  job_json jsonb not null,
  total int not null default 0,
  completed int not null default 0,
  failed int not null default 0,
  cancel_requested boolean not null default false,
  created_at timestamptz not null default now(),
  updated_at timestamptz not null default now()
);
create index if not exists generation_jobs_status_created_idx on generation_jobs (status, created_at);
create table if not exists generation_task_outcomes (
  job_id uuid not null references generation_jobs(id) on delete cascade,
  task_index int not null,
  layer_name text not null,
  succeeded boolean not null,
  storage_key text,
  model text,
  tier text,
  error_message text,
  created_at timestamptz not null default now(),
  primary key (job_id, task_index)
);
create table if not exists provider_credentials (
  provider text primary key,
  api_key text not null,
  properties jsonb not null default '{}'::jsonb,
  updated_at timestamptz not null default now()
);
`

const QEnqueueGenerationJob = `--sql 508661c6-5926-4fe9-96d0-113e028dde69
insert into generation_jobs (id, mode, status, job_json)
values ($1::uuid, $2::text, 'QUEUED', $3::jsonb)
returning id::text;
`

const QClaimGenerationJob = `--sql 0ee800d9-13ec-4fa7-833e-db04c6bef005
with next_job as (
    select id
    from generation_jobs
    where status = 'QUEUED' and not cancel_requested
    order by created_at asc
    for update skip locked
    limit 1
)
update generation_jobs j
set status = 'RUNNING', updated_at = now()
from next_job
where j.id = next_job.id
returning j.id::text, j.status, j.job_json, j.total, j.completed, j.failed, j.cancel_requested, j.created_at, j.updated_at;
`

const QGetGenerationJob = `--sql bb36b5ef-2327-49f9-b8eb-ee8f8af86394
select id::text, status, job_json, total, completed, failed, cancel_requested, created_at, updated_at
from generation_jobs
where id = $1::uuid;
`

const QUpdateGenerationProgress = `--sql 46ba3b4d-46c4-4759-9514-7d9662221ef0
update generation_jobs
set total = $2, completed = $3, failed = $4, updated_at = now()
where id = $1::uuid;
`

const QRecordTaskOutcome = `--sql 6374ab27-2774-4ed7-ba6e-3f4f21f1d2c5
insert into generation_task_outcomes (job_id, task_index, layer_name, succeeded, storage_key, model, tier, error_message)
values ($1::uuid, $2, $3, $4, nullif($5, ''), nullif($6, ''), nullif($7, ''), nullif($8, ''))
on conflict (job_id, task_index) do update
set succeeded = excluded.succeeded,
    storage_key = excluded.storage_key,
    model = excluded.model,
    tier = excluded.tier,
    error_message = excluded.error_message,
    created_at = now();
`

const QFinishGenerationJob = `--sql 5044c75e-8cae-4a45-871a-aefacbb6388c
update generation_jobs
set status = $2, total = $3, completed = $4, failed = $5, updated_at = now()
where id = $1::uuid;
`

const QRequestGenerationCancel = `--sql 8ad845c2-5a38-4fa1-bc3e-49487fb4aa88
update generation_jobs
set cancel_requested = true,
    status = case when status = 'QUEUED' then 'CANCELLED' else status end,
    updated_at = now()
where id = $1::uuid;
`

const QGenerationCancelRequested = `--sql e7e2da97-9265-49d0-94dc-6fee436a92b2
select cancel_requested
from generation_jobs
where id = $1::uuid;
`

const QListTaskOutcomes = `--sql 3d3c7988-4cae-472e-b0ed-d90027b2c186
select task_index, layer_name, succeeded, coalesce(storage_key, ''), coalesce(model, ''), coalesce(tier, ''), coalesce(error_message, '')
from generation_task_outcomes
where job_id = $1::uuid
order by task_index asc;
`
